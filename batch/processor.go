package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ffbatch/ffmpeg"
	"ffbatch/operation"
)

// Engine runs command plans and structural probes. *ffmpeg.Runner satisfies
// it; tests substitute a mock.
type Engine interface {
	Execute(ctx context.Context, plan *operation.CommandPlan, outputPath string) (string, error)
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

// Processor turns a batch into a result: one item at a time, strictly
// sequentially, with every temp file reclaimed before an item's control
// returns.
type Processor struct {
	ws     *ffmpeg.Workspace
	engine Engine
}

func NewProcessor(ws *ffmpeg.Workspace, engine Engine) *Processor {
	return &Processor{ws: ws, engine: engine}
}

// Process validates the batch, then either hands the whole batch to the
// aggregation path (Concatenate) or runs the per-item loop. A failing item
// aborts the batch unless ContinueOnFail turns it into an error record.
func (p *Processor) Process(ctx context.Context, b *Batch) (*Result, error) {
	if err := b.Options.normalize(); err != nil {
		return nil, err
	}
	if err := b.Operation.Validate(); err != nil {
		return nil, err
	}

	// Aggregate operations consume the batch as one unit; the per-item loop
	// never runs for them.
	if b.Operation.Kind == operation.KindConcatenate {
		return p.concatenate(ctx, b)
	}

	res := &Result{}
	for i, item := range b.Items {
		out, err := p.processItem(ctx, b, item)
		if err != nil {
			if b.Options.ContinueOnFail {
				log.Printf("Item %d failed, continuing: %v", i, err)
				res.Items = append(res.Items, errorItem(err))
				continue
			}
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		res.Items = append(res.Items, out)
	}
	return res, nil
}

// processItem runs the full per-item sequence: resolve inputs, build the
// plan, execute, assemble the result. All temp files are released on every
// exit path.
func (p *Processor) processItem(ctx context.Context, b *Batch, item *Item) (*Item, error) {
	if b.Operation.Kind == operation.KindMetadata {
		return p.probeItem(ctx, b, item)
	}

	inputs, temps, err := p.resolveInputs(b, item)
	if err != nil {
		return nil, err
	}
	defer releaseAll(temps)

	plan, err := operation.Build(&b.Operation, inputs)
	if err != nil {
		return nil, err
	}

	outFile, err := p.ws.Acquire("out", plan.OutputExt)
	if err != nil {
		return nil, err
	}
	defer outFile.Release()

	if _, err := p.engine.Execute(ctx, plan, outFile.Path()); err != nil {
		return nil, err
	}

	return p.assemble(b, item, plan.OutputExt, outFile.Path())
}

// probeItem issues the read-only metadata probe. The item's binary payload
// passes through unchanged; the probe document is attached to its data.
func (p *Processor) probeItem(ctx context.Context, b *Batch, item *Item) (*Item, error) {
	inputs, temps, err := p.resolveInputs(b, item)
	if err != nil {
		return nil, err
	}
	defer releaseAll(temps)

	pr, err := p.engine.Probe(ctx, inputs[0])
	if err != nil {
		return nil, err
	}

	data := cloneData(item.Data)
	data["metadata"] = pr
	return &Item{Binary: item.Binary, Path: item.Path, Data: data}, nil
}

// resolveInputs maps an item to concrete input paths. Binary payloads become
// temp files owned by the caller; explicit filesystem paths are used in place
// and never deleted. For Merge, both named payloads are checked before any
// temp file is created.
func (p *Processor) resolveInputs(b *Batch, item *Item) (paths []string, temps []*ffmpeg.TempFile, err error) {
	defer func() {
		if err != nil {
			releaseAll(temps)
			temps = nil
		}
	}()

	if b.Operation.Kind == operation.KindMerge {
		mp := b.Operation.Merge
		video := payloadFor(item, mp.VideoKey)
		audio := payloadFor(item, mp.AudioKey)
		if video == nil {
			return nil, nil, &operation.ValidationError{Field: mp.VideoKey, Reason: "binary field required for merge"}
		}
		if audio == nil {
			return nil, nil, &operation.ValidationError{Field: mp.AudioKey, Reason: "binary field required for merge"}
		}

		vt, werr := p.writePayload("in_video", video)
		if werr != nil {
			return nil, temps, werr
		}
		temps = append(temps, vt)
		at, werr := p.writePayload("in_audio", audio)
		if werr != nil {
			return nil, temps, werr
		}
		temps = append(temps, at)
		return []string{vt.Path(), at.Path()}, temps, nil
	}

	if item.Path != "" {
		if _, statErr := os.Stat(item.Path); statErr != nil {
			return nil, nil, &NotFoundError{Path: item.Path}
		}
		return []string{item.Path}, nil, nil
	}

	payload := payloadFor(item, b.Options.BinaryKey)
	if payload == nil {
		return nil, nil, &operation.ValidationError{Field: b.Options.BinaryKey, Reason: "binary field required"}
	}
	t, werr := p.writePayload("in", payload)
	if werr != nil {
		return nil, nil, werr
	}
	temps = append(temps, t)
	return []string{t.Path()}, temps, nil
}

func (p *Processor) writePayload(prefix string, payload *Payload) (*ffmpeg.TempFile, error) {
	ext := strings.TrimPrefix(filepath.Ext(payload.FileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return p.ws.WriteTemp(prefix, ext, payload.Data)
}

func payloadFor(item *Item, key string) *Payload {
	if item == nil || item.Binary == nil {
		return nil
	}
	return item.Binary[key]
}

func releaseAll(temps []*ffmpeg.TempFile) {
	for _, t := range temps {
		t.Release()
	}
}

func cloneData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	return out
}
