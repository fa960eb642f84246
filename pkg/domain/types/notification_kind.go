package types

// NotificationKind is the trigger that produced a pending notification
type NotificationKind string

const (
	NotificationCycleStarted  NotificationKind = "cycle_started"
	NotificationCycleStartsIn NotificationKind = "cycle_starts_in"
	NotificationDueIn         NotificationKind = "due_in"
	NotificationDueToday      NotificationKind = "due_today"
	NotificationTaskOverdue   NotificationKind = "task_overdue"
)

// AllNotificationKinds returns all kinds in digest order
func AllNotificationKinds() []NotificationKind {
	return []NotificationKind{
		NotificationCycleStarted,
		NotificationCycleStartsIn,
		NotificationDueIn,
		NotificationDueToday,
		NotificationTaskOverdue,
	}
}

// IsValid checks if the kind is valid
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationCycleStarted,
		NotificationCycleStartsIn,
		NotificationDueIn,
		NotificationDueToday,
		NotificationTaskOverdue:
		return true
	default:
		return false
	}
}

// IsRepeating reports whether the kind fires again every day until resolved
func (k NotificationKind) IsRepeating() bool {
	return k == NotificationTaskOverdue
}

// Title returns the digest section heading for the kind
func (k NotificationKind) Title() string {
	switch k {
	case NotificationCycleStarted:
		return "Cycle started"
	case NotificationCycleStartsIn:
		return "Cycle starts soon"
	case NotificationDueIn:
		return "Tasks due soon"
	case NotificationDueToday:
		return "Tasks due today"
	case NotificationTaskOverdue:
		return "Overdue tasks"
	default:
		return string(k)
	}
}

// String returns the string representation of the kind
func (k NotificationKind) String() string {
	return string(k)
}
