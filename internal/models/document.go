package models

// Role marks a group member as the primary invoice or a supporting allegato.
type Role string

const (
	RoleMain       Role = "main"
	RoleAttachment Role = "attachment"
)

// UploadedDocument is one PDF as received from the upload form. It lives for
// the duration of a single request and is never persisted.
type UploadedDocument struct {
	OriginalName string
	Content      []byte
}

// GroupMember pairs an uploaded document with its resolved role inside a group.
// AttachmentIndex is the explicit "Allegato N" index from the filename, or -1.
type GroupMember struct {
	Document        UploadedDocument
	Role            Role
	AttachmentIndex int
}

// DocumentGroup is the set of documents sharing one group key. Members are
// kept in merge order: main first, then attachments.
type DocumentGroup struct {
	Key     string
	Members []GroupMember
}

// ExtractedMetadata holds what the heuristics recovered from a group's text.
// An empty field means the metadata is absent.
type ExtractedMetadata struct {
	AddresseeName   string
	ReferenceNumber string
}

// MergedOutput is one finished PDF ready for the archive.
type MergedOutput struct {
	Filename string
	Bytes    []byte
}

// GroupFailure records a group that could not be merged.
type GroupFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// MergeReport is the result of one merge request.
type MergeReport struct {
	Outputs         []MergedOutput `json:"-"`
	GroupsAttempted int            `json:"groupsAttempted"`
	GroupsMerged    int            `json:"groupsMerged"`
	Failures        []GroupFailure `json:"failures,omitempty"`
}
