package batch

import (
	"context"
	"log"
	"os"
	"strings"

	"ffbatch/ffmpeg"
	"ffbatch/operation"
)

// concatenate consumes the whole batch as one unit. Inputs come either from
// an explicit ordered path list or from one binary payload per item, written
// to temps in item order. Payload temps and the manifest are always released;
// explicit-path inputs are never deleted.
func (p *Processor) concatenate(ctx context.Context, b *Batch) (*Result, error) {
	cp := b.Operation.Concat

	var temps []*ffmpeg.TempFile
	defer func() { releaseAll(temps) }()

	paths, inputTemps, err := p.gatherConcatInputs(b)
	temps = append(temps, inputTemps...)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		if b.Options.ContinueOnFail {
			// Nothing to join: the batch passes through unchanged.
			return &Result{Items: b.Items}, nil
		}
		return nil, &NotFoundError{Msg: "no valid inputs found for concatenation"}
	}

	var plan *operation.CommandPlan
	if cp.Strategy == operation.ConcatCopy {
		manifest, merr := p.ws.WriteTemp("concat_list", "txt", []byte(operation.ConcatManifest(paths)))
		if merr != nil {
			return nil, merr
		}
		temps = append(temps, manifest)
		plan = operation.ConcatCopyPlan(manifest.Path(), cp.Format)
	} else {
		plan = operation.ConcatReencodePlan(paths, cp.Format)
	}

	outFile, err := p.ws.Acquire("concat_out", plan.OutputExt)
	if err != nil {
		return nil, err
	}
	defer outFile.Release()

	if _, err := p.engine.Execute(ctx, plan, outFile.Path()); err != nil {
		if b.Options.ContinueOnFail {
			return &Result{Items: []*Item{errorItem(err)}}, nil
		}
		return nil, err
	}

	// The aggregate result inherits the first item's pass-through data.
	base := &Item{}
	if len(b.Items) > 0 {
		base = b.Items[0]
	}
	out, err := p.assemble(b, base, plan.OutputExt, outFile.Path())
	if err != nil {
		return nil, err
	}
	return &Result{Items: []*Item{out}}, nil
}

// gatherConcatInputs resolves the ordered input set. A missing explicit path
// is fatal, or skipped under ContinueOnFail.
func (p *Processor) gatherConcatInputs(b *Batch) ([]string, []*ffmpeg.TempFile, error) {
	cp := b.Operation.Concat

	explicit := cp.Paths
	if len(explicit) == 0 && cp.PathList != "" {
		for _, s := range strings.Split(cp.PathList, ",") {
			if s = strings.TrimSpace(s); s != "" {
				explicit = append(explicit, s)
			}
		}
	}

	if len(explicit) > 0 {
		var paths []string
		for _, pth := range explicit {
			if _, err := os.Stat(pth); err != nil {
				if b.Options.ContinueOnFail {
					log.Printf("Skipping missing concat input: %s", pth)
					continue
				}
				return nil, nil, &NotFoundError{Path: pth}
			}
			paths = append(paths, pth)
		}
		return paths, nil, nil
	}

	var paths []string
	var temps []*ffmpeg.TempFile
	for _, item := range b.Items {
		payload := payloadFor(item, b.Options.BinaryKey)
		if payload == nil {
			continue
		}
		t, err := p.writePayload("concat_in", payload)
		if err != nil {
			releaseAll(temps)
			return nil, nil, err
		}
		temps = append(temps, t)
		paths = append(paths, t.Path())
	}
	return paths, temps, nil
}
