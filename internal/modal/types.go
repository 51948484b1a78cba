package modal

type Action string

const (
	ActionReplenish Action = "replenish"
	ActionSnooze    Action = "snooze"
	ActionNoop      Action = "noop"
)

// Stage is the position of a Record in the decision workflow.
type Stage string

const (
	StageNew             Stage = "NEW"
	StageFetchSignals    Stage = "FETCH_SIGNALS"
	StageFeatureEngineer Stage = "FEATURE_ENGINEER"
	StageDecide          Stage = "DECIDE"
	StageNotify          Stage = "NOTIFY"
	StageAct             Stage = "ACT"
	StageJournal         Stage = "JOURNAL"
	StageDone            Stage = "DONE"
)

// Stages lists the workflow stages in execution order.
var Stages = []Stage{
	StageFetchSignals,
	StageFeatureEngineer,
	StageDecide,
	StageNotify,
	StageAct,
	StageJournal,
}

const (
	ReasonLowRisk     = "low risk"
	ReasonSnoozed     = "snoozed"
	ReasonNoPositive  = "no positive qty after constraints"
	JournalEventType  = "shelf_out_decision"
	DefaultAlertTopic = "#replenishment"
)
