package batch

import (
	"fmt"

	"ffbatch/operation"
)

// Payload is an inline binary attachment. Data is base64 over JSON.
type Payload struct {
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data"`
}

// Item is one unit of work in a batch, and also the shape of one result
// record. Data is pass-through: it survives processing unchanged unless the
// operation annotates it.
type Item struct {
	Binary     map[string]*Payload    `json:"binary,omitempty"`
	Path       string                 `json:"path,omitempty"`       // filesystem input, used instead of Binary when set
	OutputPath string                 `json:"outputPath,omitempty"` // per-item destination for file disposition
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Output dispositions.
const (
	OutputModePayload = "payload" // return the produced file as an inline binary
	OutputModeFile    = "file"    // copy it to an explicit destination path
)

// Options are batch-level flags shared by every item.
type Options struct {
	ContinueOnFail bool   `json:"continueOnFail,omitempty"`
	BinaryKey      string `json:"binaryKey,omitempty"`  // input and output binary field name
	OutputMode     string `json:"outputMode,omitempty"` // payload (default) or file
	OutputPath     string `json:"outputPath,omitempty"` // fallback destination when items carry none
	FileName       string `json:"fileName,omitempty"`   // custom output name, extension appended
}

func (o *Options) normalize() error {
	if o.BinaryKey == "" {
		o.BinaryKey = "data"
	}
	if o.OutputMode == "" {
		o.OutputMode = OutputModePayload
	}
	if o.OutputMode != OutputModePayload && o.OutputMode != OutputModeFile {
		return &operation.ValidationError{Field: "options.outputMode", Reason: "must be payload or file"}
	}
	return nil
}

// Batch is one submitted unit: a single operation applied to N items.
type Batch struct {
	Operation operation.Descriptor `json:"operation"`
	Options   Options              `json:"options"`
	Items     []*Item              `json:"items"`
}

// Result holds one record per processed item (or a single record for
// aggregate operations). Failed items under ContinueOnFail become error
// records carrying only the message.
type Result struct {
	Items []*Item `json:"items"`
}

func errorItem(err error) *Item {
	return &Item{Data: map[string]interface{}{"error": err.Error()}}
}

// NotFoundError reports a referenced filesystem path that does not exist, or
// an aggregate operation left with nothing to consume. Raised before any
// plan executes.
type NotFoundError struct {
	Path string
	Msg  string
}

func (e *NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("input path does not exist: %s", e.Path)
}
