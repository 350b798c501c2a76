package file

// UnknownValue is stored when the uploader omits a file name or content type.
const UnknownValue = "unknown"

// File is the metadata record of one uploaded blob.
type File struct {
	ID              string `json:"id"`
	FileName        string `json:"file_name"`
	ContentType     string `json:"content_type"`
	UploadTime      int64  `json:"upload_time"`
	DownloadLimit   int    `json:"download_limit"`
	DownloadCount   int    `json:"download_count"`
	FileSize        int64  `json:"file_size"`
	DownloadURL     string `json:"download_url"`
	Owner           string `json:"owner"`
	PendingDeletion bool   `json:"-"`
}

// Exhausted reports whether no further consumption is allowed.
func (f File) Exhausted() bool {
	return f.PendingDeletion || f.DownloadCount >= f.DownloadLimit
}

// Download is the payload served by one successful consumption.
type Download struct {
	Data        []byte
	ContentType string
	FileName    string
	FileSize    int64
}

// ReconcileReport summarizes what a reconciliation pass repaired.
type ReconcileReport struct {
	PendingFinished int
	OrphanBlobs     int
	OrphanRecords   int
}
