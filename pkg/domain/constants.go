package domain

// Field names shared by the JSON encoding and the action codec.
const (
	// KeyKind is the envelope field carrying the action kind.
	KeyKind = "kind"
	// KeyPayload is the envelope field carrying the action fields.
	KeyPayload = "payload"
	// KeyTabID is the field naming the tab an action targets.
	KeyTabID = "tab_id"
)
