package entities

type File struct {
	FID       Int      `json:"fid"`
	UID       Int      `json:"uid,omitempty"`
	Filename  string   `json:"filename"`
	Filepath  string   `json:"filepath"`
	Filemime  string   `json:"filemime,omitempty"`
	Filesize  Int      `json:"filesize,omitempty"`
	Status    Int      `json:"status,omitempty"`
	Timestamp UnixTime `json:"timestamp,omitempty"`
}
