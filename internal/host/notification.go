package host

// Notification names cover both host generations: the synchronous solution
// events and the later background-load events. Only the first five carry
// meaning for crash detection; the rest are accepted and ignored.
const (
	BeforeOpenSolution                  = "before_open_solution"
	AfterOpenSolution                   = "after_open_solution"
	BeforeBackgroundSolutionLoadBegins  = "before_background_solution_load_begins"
	AfterBackgroundSolutionLoadComplete = "after_background_solution_load_complete"
	AfterCloseSolution                  = "after_close_solution"

	BeforeCloseSolution    = "before_close_solution"
	AfterLoadProject       = "after_load_project"
	AfterOpenProject       = "after_open_project"
	BeforeCloseProject     = "before_close_project"
	BeforeUnloadProject    = "before_unload_project"
	BeforeLoadProjectBatch = "before_load_project_batch"
	AfterLoadProjectBatch  = "after_load_project_batch"

	QueryCloseSolution              = "query_close_solution"
	QueryCloseProject               = "query_close_project"
	QueryUnloadProject              = "query_unload_project"
	QueryBackgroundLoadProjectBatch = "query_background_load_project_batch"
)

// Notification is one host event as received on the wire.
type Notification struct {
	// ID is echoed back in the reply when present.
	ID any `json:"id,omitempty"`
	// Event is one of the notification names above.
	Event string `json:"event"`
	// Path is the workspace descriptor; only before_open_solution carries it.
	Path string `json:"path,omitempty"`
}

// Reply acknowledges a notification. OK is always true.
type Reply struct {
	ID     any   `json:"id,omitempty"`
	OK     bool  `json:"ok"`
	Cancel *bool `json:"cancel,omitempty"`
	Delay  *bool `json:"delay,omitempty"`
}

// Known reports whether name is part of the host vocabulary.
func Known(name string) bool {
	_, ok := vocabulary[name]
	return ok
}

var vocabulary = map[string]struct{}{
	BeforeOpenSolution:                  {},
	AfterOpenSolution:                   {},
	BeforeBackgroundSolutionLoadBegins:  {},
	AfterBackgroundSolutionLoadComplete: {},
	AfterCloseSolution:                  {},
	BeforeCloseSolution:                 {},
	AfterLoadProject:                    {},
	AfterOpenProject:                    {},
	BeforeCloseProject:                  {},
	BeforeUnloadProject:                 {},
	BeforeLoadProjectBatch:              {},
	AfterLoadProjectBatch:               {},
	QueryCloseSolution:                  {},
	QueryCloseProject:                   {},
	QueryUnloadProject:                  {},
	QueryBackgroundLoadProjectBatch:     {},
}
