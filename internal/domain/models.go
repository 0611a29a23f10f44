package domain

// Format tags as stored in the registry and carried on work items.
const (
	FormatOriginal = "ORIGINAL"
	Format32Px     = "32px"
	Format100Px    = "100px"
	Format200Px    = "200px"
	FormatBlurred  = "blurred"
)

// DerivativeFormats lists every format fanned out for an ingested original.
var DerivativeFormats = []string{Format32Px, Format100Px, Format200Px, FormatBlurred}

// ImageRecord is one registry row. ImageId is the lookup key: the source
// filename stem for originals, or "<stem>_<FORMAT>" for derivatives.
type ImageRecord struct {
	ItemID  string `dynamodbav:"ItemId" json:"ItemId"`
	ImageID string `dynamodbav:"ImageId" json:"ImageId"`
	Format  string `dynamodbav:"format" json:"format"`
	URL     string `dynamodbav:"url" json:"url"`
}

// WorkItem is one queued instruction to produce one derivative of one original.
type WorkItem struct {
	ItemID string `json:"itemId"`
	S3URL  string `json:"s3Url"`
	Format string `json:"format"`
}

// IngestRequest is the ingestion payload.
type IngestRequest struct {
	ItemID    string   `json:"itemId"`
	PhotoURLs []string `json:"photoUrls"`
}

// IngestedImage describes one newly committed original in the ingest response.
type IngestedImage struct {
	ImageID  string `json:"imageId"`
	FileName string `json:"fileName"`
	S3URL    string `json:"s3Url"`
}
