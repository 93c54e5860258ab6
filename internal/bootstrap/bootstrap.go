// Package bootstrap builds a fully wired dispatcher and gateway from
// configuration.
package bootstrap

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lthuynh/NeuralNGenAI/internal/api"
	"github.com/lthuynh/NeuralNGenAI/internal/artifact"
	"github.com/lthuynh/NeuralNGenAI/internal/compute"
	"github.com/lthuynh/NeuralNGenAI/internal/config"
	"github.com/lthuynh/NeuralNGenAI/internal/dispatcher"
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
)

// NewDispatcher assembles adapters and the capability snapshot per the
// configuration. A profile file takes precedence over local detection.
func NewDispatcher(cfg config.Config, log *zap.Logger) (*dispatcher.Dispatcher, error) {
	var snap *profile.CapabilitySnapshot
	if strings.TrimSpace(cfg.Profile.File) != "" {
		loaded, err := profile.LoadFile(cfg.Profile.File)
		if err != nil {
			return nil, err
		}
		snap = loaded
	} else {
		snap = profile.Detect()
	}

	simOpts := compute.SimulatedOptions{
		BaseLatency:  cfg.Adapters.BaseLatency,
		LatencyPerKB: cfg.Adapters.LatencyPerKB,
	}
	adapters := compute.NewSet(
		compute.NewSimulatedCPU(simOpts),
		compute.NewSimulatedGPU(simOpts),
		compute.NewSimulatedNeural(simOpts),
	)
	return dispatcher.New(dispatcher.Options{
		Adapters: adapters,
		Snapshot: snap,
		Logger:   log,
	}), nil
}

// NewServer wraps the dispatcher in the HTTP gateway, wiring the configured
// artifact backend.
func NewServer(cfg config.Config, d *dispatcher.Dispatcher, log *zap.Logger) (*api.Server, error) {
	store, err := newArtifactStore(cfg.Artifact)
	if err != nil {
		return nil, err
	}
	return api.NewServer(d, api.Options{
		APIToken:    cfg.APIToken,
		Artifacts:   store,
		InlineLimit: cfg.Artifact.InlineLimit,
		Logger:      log,
	}), nil
}

func newArtifactStore(cfg config.ArtifactConfig) (artifact.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "local":
		return artifact.NewLocalStore(cfg.Root), nil
	case "minio":
		return artifact.NewMinIOStore(artifact.MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported artifact backend %q", cfg.Backend)
	}
}
