package errutil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
)

func TestHandle(t *testing.T) {
	ctx := context.Background()

	gt.NoError(t, errutil.Handle(ctx, nil, "nothing"))

	err := goerr.New("boom", goerr.V("object_type", "Control"))
	got := errutil.Handle(ctx, err, "failed")
	gt.Error(t, got).Is(err)
}

func TestHandleHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), rec, goerr.New("bad input"), http.StatusBadRequest)

	gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	gt.String(t, rec.Body.String()).Contains("bad input")
}
