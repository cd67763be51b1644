package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ffbatch/operation"

	"github.com/lithammer/shortuuid/v4"
)

var mimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"aac":  "audio/aac",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

func mimeForExt(ext string) string {
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// assemble turns a produced output file into the item's result record.
// Exactly one disposition applies per batch: return the bytes as an inline
// payload, or copy them to an explicit destination path.
func (p *Processor) assemble(b *Batch, item *Item, ext, producedPath string) (*Item, error) {
	if b.Options.OutputMode == OutputModeFile {
		dest := item.OutputPath
		if dest == "" {
			dest = b.Options.OutputPath
		}
		if dest == "" {
			return nil, &operation.ValidationError{Field: "outputPath", Reason: "required for file output mode"}
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("could not create destination directory: %w", err)
		}
		if err := copyFile(producedPath, dest); err != nil {
			return nil, err
		}

		data := cloneData(item.Data)
		data["outputPath"] = dest
		data["success"] = true
		return &Item{Data: data}, nil
	}

	raw, err := os.ReadFile(producedPath)
	if err != nil {
		return nil, fmt.Errorf("could not read output file: %w", err)
	}

	name := b.Options.FileName
	if name == "" {
		name = shortuuid.New()
	}
	fileName := name + "." + ext

	return &Item{
		Binary: map[string]*Payload{
			b.Options.BinaryKey: {
				FileName: fileName,
				MimeType: mimeForExt(ext),
				Data:     raw,
			},
		},
		Data: cloneData(item.Data),
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open output file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("could not create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy output to destination: %w", err)
	}
	return out.Close()
}
