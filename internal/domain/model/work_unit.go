package model

// WorkUnit is one bounded slice of a document submitted as a single streaming
// generation call. Units of the same job are strictly ordered; when Append is
// set the unit continues the output of the previous unit and must not run
// before it.
type WorkUnit struct {
	JobID      string
	Index      int
	Text       string
	TokenCount int // estimated, used only for bounding
	Append     bool
}
