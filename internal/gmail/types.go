package gmail

// LabelID is Gmail's opaque label identifier, distinct from the
// user-visible label name.
type LabelID string
