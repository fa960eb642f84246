package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/repository/memory"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/usecase/converter"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
)

const importer = "importer@example.com"

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const programsAndControls = "Object type,Program\n" +
	"Code,Title,Program Managers\n" +
	"PROGRAM-A,Privacy,alice@example.com\n" +
	"\n" +
	"Object type,Control\n" +
	"Code,Title,Admin,map:Program\n" +
	",Encrypt laptops,bob@example.com,PROGRAM-A\n" +
	",,bob@example.com,\n"

func newUseCases(repo *memory.Memory, opts ...usecase.Option) *usecase.UseCases {
	opts = append([]usecase.Option{usecase.WithClock(func() time.Time { return fixedNow })}, opts...)
	return usecase.New(repo, opts...)
}

func TestImportUseCase_ImportFile(t *testing.T) {
	ctx := context.Background()

	t.Run("imports every block and commits valid rows", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		results, err := uc.Import.ImportFile(ctx, strings.NewReader(programsAndControls), "records.csv",
			usecase.ImportOptions{Actor: importer})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2).Required()

		gt.Value(t, results[0].Name).Equal("Program")
		gt.Number(t, results[0].Created).Equal(1)

		gt.Value(t, results[1].Name).Equal("Control")
		gt.Number(t, results[1].Created).Equal(1)
		gt.Number(t, results[1].Ignored).Equal(1)
		gt.Array(t, results[1].RowErrors).Length(1)
		gt.String(t, results[1].RowErrors[0]).Contains("Line 8: ")

		controls, err := repo.Record().List(ctx, types.ObjectTypeControl)
		gt.NoError(t, err).Required()
		gt.Array(t, controls).Length(1).Required()
		gt.Value(t, controls[0].Title).Equal("Encrypt laptops")
		gt.Value(t, controls[0].LastUpdatedBy).Equal(importer)

		program, err := repo.Record().GetBySlug(ctx, types.ObjectTypeProgram, "PROGRAM-A")
		gt.NoError(t, err).Required()
		rel, err := repo.Relationship().Find(ctx, controls[0].Ref(), program.Ref())
		gt.NoError(t, err).Required()
		gt.Value(t, rel).NotNil()
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		results, err := uc.Import.ImportFile(ctx, strings.NewReader(programsAndControls), "records.csv",
			usecase.ImportOptions{Actor: importer, DryRun: true, Commit: converter.CommitPerRow})
		gt.NoError(t, err).Required()
		gt.Number(t, results[0].Created).Equal(1)
		gt.Number(t, results[1].Created).Equal(1)

		programs, err := repo.Record().List(ctx, types.ObjectTypeProgram)
		gt.NoError(t, err).Required()
		gt.Array(t, programs).Length(0)

		person, err := repo.Person().GetByEmail(ctx, "alice@example.com")
		gt.NoError(t, err)
		gt.Value(t, person).Nil()
	})

	t.Run("per row commit", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		_, err := uc.Import.ImportFile(ctx, strings.NewReader(programsAndControls), "records.csv",
			usecase.ImportOptions{Actor: importer, Commit: converter.CommitPerRow})
		gt.NoError(t, err).Required()

		controls, err := repo.Record().List(ctx, types.ObjectTypeControl)
		gt.NoError(t, err).Required()
		gt.Array(t, controls).Length(1)
	})

	t.Run("file without blocks", func(t *testing.T) {
		uc := newUseCases(memory.New())
		_, err := uc.Import.ImportFile(ctx, strings.NewReader("Title\nfoo\n"), "records.csv", usecase.ImportOptions{})
		gt.Error(t, err).Is(csvfile.ErrNoBlocks)
	})
}

func TestImportUseCase_ImportBlocks(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := newUseCases(repo)

	blocks := []*csvfile.Block{
		{
			ObjectType: "Program",
			Header:     []string{"Title", "Program Managers"},
			Rows:       [][]string{{"First", "alice@example.com"}},
		},
		{
			ObjectType: "program",
			Header:     []string{"Title", "Program Managers"},
			Rows:       [][]string{{"", "alice@example.com"}},
		},
	}
	results, err := uc.Import.ImportBlocks(ctx, blocks, usecase.ImportOptions{Actor: importer})
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(2).Required()
	gt.Number(t, results[0].Created).Equal(1)

	// second block starts after a blank line: marker 5, header 6, row 7
	gt.Array(t, results[1].RowErrors).Length(1).Required()
	gt.String(t, results[1].RowErrors[0]).Contains("Line 7: ")
}

func TestNumberLines(t *testing.T) {
	blocks := []*csvfile.Block{
		{Rows: [][]string{{"a"}, {"b"}}},
		{HeaderLine: 42, Rows: [][]string{{"c"}}},
		{Rows: [][]string{{"d"}}},
	}
	usecase.NumberLines(blocks)

	gt.Number(t, blocks[0].HeaderLine).Equal(2)
	gt.Number(t, blocks[0].LineOf(1)).Equal(4)
	gt.Number(t, blocks[1].HeaderLine).Equal(42)
	gt.Number(t, blocks[2].HeaderLine).Equal(46)
}

func TestSyncSchema(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	schema := config.DefaultSchema()
	schema.Attributes = append(schema.Attributes, model.CustomAttributeDefinition{
		Title:         "Risk Rating",
		ObjectType:    types.ObjectTypeControl,
		AttributeType: types.AttributeTypeDropdown,
		MultiChoiceOptions: []string{
			"Low", "High",
		},
	})
	schema.LocalAttributes = append(schema.LocalAttributes,
		config.LocalAttribute{
			RecordSlug: "PROGRAM-A",
			Definition: model.CustomAttributeDefinition{
				Title:         "Budget Owner",
				ObjectType:    types.ObjectTypeProgram,
				AttributeType: types.AttributeTypeText,
			},
		},
		config.LocalAttribute{
			RecordSlug: "PROGRAM-MISSING",
			Definition: model.CustomAttributeDefinition{
				Title:         "Ignored",
				ObjectType:    types.ObjectTypeProgram,
				AttributeType: types.AttributeTypeText,
			},
		},
	)

	uc := newUseCases(repo, usecase.WithSchema(schema))
	_, err := uc.Import.ImportFile(ctx, strings.NewReader(programsAndControls), "records.csv",
		usecase.ImportOptions{Actor: importer})
	gt.NoError(t, err).Required()

	n, err := usecase.SyncSchema(ctx, repo, schema)
	gt.NoError(t, err).Required()
	gt.Number(t, n).Equal(2)

	program, err := repo.Record().GetBySlug(ctx, types.ObjectTypeProgram, "PROGRAM-A")
	gt.NoError(t, err).Required()

	defs, err := repo.CustomAttribute().ListDefinitions(ctx, types.ObjectTypeProgram)
	gt.NoError(t, err).Required()
	gt.Array(t, defs).Length(1).Required()
	gt.Value(t, defs[0].DefinitionID).Equal(program.ID)
	gt.Value(t, defs[0].ID).Equal(model.CADID(types.ObjectTypeProgram, program.ID, "Budget Owner"))
}
