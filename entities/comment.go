package entities

// Comment is attached to a node. Cid and Uid are omitted on save when zero so the
// remote site creates a new comment as the session user.
type Comment struct {
	CID       Int      `json:"cid,omitempty"`
	PID       Int      `json:"pid,omitempty"`
	NID       Int      `json:"nid"`
	UID       Int      `json:"uid,omitempty"`
	Subject   string   `json:"subject"`
	Comment   string   `json:"comment"`
	Format    Int      `json:"format,omitempty"`
	Timestamp UnixTime `json:"timestamp,omitempty"`
	Status    Int      `json:"status,omitempty"`
	Name      string   `json:"name,omitempty"`
	Mail      string   `json:"mail,omitempty"`
	Homepage  string   `json:"homepage,omitempty"`
	Thread    string   `json:"thread,omitempty"`
}
