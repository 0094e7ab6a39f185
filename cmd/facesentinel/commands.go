package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SBanditaDas/facesentinel/pkg/detector"
	"github.com/SBanditaDas/facesentinel/pkg/liveness"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
	"github.com/SBanditaDas/facesentinel/pkg/similarity"
	"github.com/SBanditaDas/facesentinel/pkg/storage"
	"github.com/SBanditaDas/facesentinel/pkg/verify"
)

func verifierConfig() verify.Config {
	return verify.Config{
		Interval: time.Duration(cfg.Verification.IntervalMS) * time.Millisecond,
		Similarity: similarity.Config{
			Threshold:      cfg.Verification.Threshold,
			HighCutoff:     cfg.Verification.HighCutoff,
			VeryHighCutoff: cfg.Verification.VeryHighCutoff,
		},
		Liveness: liveness.Config{
			Threshold:    cfg.Liveness.Threshold,
			MotionWindow: cfg.Liveness.MotionWindow,
		},
		LogCapacity: cfg.Watchlist.LogCapacity,
	}
}

// buildVerifier wires the detector, profile store and verifier together.
// The returned detector must be closed by the caller.
func buildVerifier(frames verify.FrameSource) (*verify.Verifier, *detector.Dlib, *storage.ProfileStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create directories: %w", err)
	}

	store, err := storage.NewProfileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	det := detector.NewDlib()
	if err := det.LoadModels(cfg.Detector.ModelPath); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load detection models: %w", err)
	}

	return verify.NewVerifier(verifierConfig(), det, frames), det, store, nil
}

func cmdEnroll(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("at least one image required\nUsage: facesentinel enroll <image> [image...]")
	}

	samples := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		samples = append(samples, data)
	}

	v, det, store, err := buildVerifier(nil)
	if err != nil {
		return err
	}
	defer det.Close()

	ref, err := v.Enroll(samples)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	now := time.Now()
	profile := storage.Profile{
		Vector:     ref,
		Samples:    len(samples),
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	if err := store.Save(profile); err != nil {
		return err
	}

	fmt.Printf("Enrolled reference profile from %d image(s) (%d components).\n", len(samples), len(ref))
	return nil
}

func cmdVerify(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("image required\nUsage: facesentinel verify <image>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	v, det, store, err := buildVerifier(&oneShotSource{data: data})
	if err != nil {
		return err
	}
	defer det.Close()

	profile, err := store.Load()
	if err != nil {
		return err
	}
	v.SetReference(profile.Vector)

	out, err := v.VerifyOnce()
	if err != nil {
		return err
	}
	printOutcome(out)
	return nil
}

func cmdWatch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("frame directory required\nUsage: facesentinel watch <framedir>")
	}

	feed, err := newDirFeed(args[0])
	if err != nil {
		return err
	}

	v, det, store, err := buildVerifier(feed)
	if err != nil {
		return err
	}
	defer det.Close()

	profile, err := store.Load()
	if err != nil {
		return err
	}
	v.SetReference(profile.Vector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		cancel()
	}()

	v.SetResultHandler(func(out verify.Outcome) {
		if errors.Is(out.Err, errNoMoreFrames) {
			cancel()
			return
		}
		printOutcome(out)
	})

	fmt.Printf("Watching %s (%d frames, every %d ms). Press Ctrl-C to stop.\n",
		args[0], feed.Len(), cfg.Verification.IntervalMS)

	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	entries := v.Encounters()
	fmt.Printf("\nSession summary: %d distinct unauthorized identit(y/ies), %d logged encounter(s).\n",
		v.People(), len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s\n", e.Timestamp.Format(time.RFC3339), e.Label)
	}
	return nil
}

func cmdRemove(args []string) error {
	store, err := storage.NewProfileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := store.Delete(); err != nil {
		if errors.Is(err, storage.ErrNotEnrolled) {
			fmt.Println("No reference profile enrolled.")
			return nil
		}
		return err
	}

	fmt.Println("Reference profile removed.")
	return nil
}

func printOutcome(out verify.Outcome) {
	switch {
	case out.Err != nil:
		fmt.Printf("[%s] error: %v\n", out.Timestamp.Format("15:04:05"), out.Err)
	case !out.FaceFound:
		fmt.Printf("[%s] no face\n", out.Timestamp.Format("15:04:05"))
	case out.Liveness != nil && !out.Liveness.IsLive:
		fmt.Printf("[%s] SPOOF SUSPECTED: %s\n", out.Timestamp.Format("15:04:05"), out.Liveness.Reason)
	case out.Verification != nil && out.Verification.IsSame:
		fmt.Printf("[%s] MATCH (similarity %.2f, %s)\n",
			out.Timestamp.Format("15:04:05"), out.Verification.Similarity, out.Verification.Level)
	case out.Verification != nil:
		label := "unknown"
		if out.Encounter != nil {
			label = out.Encounter.Label
		}
		fmt.Printf("[%s] NO MATCH (similarity %.2f, %s) logged as %s\n",
			out.Timestamp.Format("15:04:05"), out.Verification.Similarity, out.Verification.Level, label)
	default:
		logging.Debug("pass produced no verdict")
	}
}
