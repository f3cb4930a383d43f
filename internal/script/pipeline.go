package script

import (
	"context"
	"errors"
	"fmt"

	"gsx/internal/cache"
	"gsx/internal/compiler"
	"gsx/internal/config"
	"gsx/internal/manifest"
	"gsx/internal/runner"
	"gsx/internal/synth"
)

// Pipeline runs scripts through the extract/synthesize/hash/cache/build
// stages. All collaborators are threaded in explicitly; the pipeline holds
// no hidden global state.
type Pipeline struct {
	Store   *cache.Store
	Builder *compiler.Builder
	Cfg     *config.Config

	// ProfileExplicit marks that the profile came from a command-line
	// flag, which outranks a manifest override.
	ProfileExplicit bool
}

// Prepare takes an input through extraction, synthesis and the cache,
// returning a built entry. Exactly one build happens per distinct script
// state even under concurrent invocation.
func (p *Pipeline) Prepare(ctx context.Context, in *Input) (*cache.Entry, error) {
	ext, err := manifest.Extract(in.Source)
	if err != nil {
		return nil, err
	}

	kind := ext.Kind
	if in.ForceExpression {
		kind = manifest.KindExpression
	}

	profile := p.Cfg.Profile
	if ext.Manifest.Profile != "" && !p.ProfileExplicit {
		if !compiler.ValidProfile(ext.Manifest.Profile) {
			return nil, &manifest.ExtractionError{
				Line:   1,
				Reason: fmt.Sprintf("unknown profile %q", ext.Manifest.Profile),
			}
		}

		profile = ext.Manifest.Profile
	}

	toolchain, err := p.Builder.Identity(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.KeyInput{
		Body:            ext.Body,
		Manifest:        ext.Manifest,
		Kind:            kind,
		TemplateVersion: synth.TemplateVersion,
		Toolchain:       toolchain,
		Profile:         profile,
	})

	if !p.Cfg.NoCache && !p.Cfg.Force {
		entry, err := p.Store.Lookup(key)
		if err != nil {
			return nil, err
		}

		if entry != nil && entry.Built() {
			return entry, nil
		}
	}

	return p.buildLocked(ctx, key, ext, kind, in, profile, toolchain)
}

// buildLocked serializes with other processes on the per-key build lock,
// re-checks the entry once the lock is held and builds if still needed.
func (p *Pipeline) buildLocked(ctx context.Context, key string, ext *manifest.Extraction, kind manifest.Kind, in *Input, profile, toolchain string) (*cache.Entry, error) {
	lock, err := p.Store.AcquireBuildLock(ctx, key, p.Cfg.LockWait)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	// Purging under the lock keeps a forced rebuild from yanking the entry
	// directory out from under a builder that got there first.
	if p.Cfg.Force {
		if err := p.Store.Purge(key); err != nil {
			return nil, err
		}
	}

	// Another process may have completed the build while we waited.
	entry, err := p.Store.Lookup(key)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		pkg := synth.Synthesize(ext.Manifest, kind, ext.Body, in.Label)

		entry, err = p.Store.Create(key, pkg, in.Label, kind, profile, toolchain)
		if err != nil {
			return nil, err
		}
	}

	if entry.Built() && !p.Cfg.NoCache {
		return entry, nil
	}

	if _, err := p.Builder.Build(ctx, p.Store, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Execute prepares the input and runs the resulting binary, forwarding
// args and streams per opts. A binary that vanished after being marked
// built triggers one automatic rebuild before the failure is surfaced.
func (p *Pipeline) Execute(ctx context.Context, in *Input, opts runner.Options) (int, error) {
	entry, err := p.Prepare(ctx, in)
	if err != nil {
		return 0, err
	}

	status, err := runner.Run(ctx, p.Store, entry, opts)
	if err == nil {
		return status, nil
	}

	if !errors.Is(err, runner.ErrArtifactMissing) {
		return 0, err
	}

	if err := p.Store.MarkUnbuilt(entry); err != nil {
		return 0, err
	}

	entry, err = p.Prepare(ctx, in)
	if err != nil {
		return 0, err
	}

	return runner.Run(ctx, p.Store, entry, opts)
}
