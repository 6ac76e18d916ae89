package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// Registry implements domain.ModelProvider over a directory of trained
// artifacts. Readers always see a complete, immutable snapshot; Reload
// prepares a replacement off to the side and installs it with one atomic
// pointer swap.
type Registry struct {
	dir       string
	indexFile string
	logger    *logrus.Logger

	snapshot atomic.Pointer[snapshot]

	// reloadMu serializes reloads; it is never taken on the read path.
	reloadMu sync.Mutex
}

type snapshot struct {
	models   map[domain.BloodType]*domain.ForecastModel
	metadata []domain.ModelMetadata
	version  uint64
	loadedAt time.Time
}

// NewRegistry creates a registry rooted at cfg.Dir. The initial snapshot is
// fully synthetic (version 0) so Load works before the first Reload.
func NewRegistry(cfg domain.ModelsConfig, logger *logrus.Logger) *Registry {
	indexFile := cfg.IndexFile
	if indexFile == "" {
		indexFile = "index.json"
	}

	r := &Registry{
		dir:       cfg.Dir,
		indexFile: indexFile,
		logger:    logger,
	}
	r.snapshot.Store(buildSnapshot(nil, 0, time.Now().UTC()))
	return r
}

// Load returns the model for one blood type. Unknown blood types are the only
// failure mode; known types always resolve, possibly to a synthetic baseline.
func (r *Registry) Load(bloodType domain.BloodType) (*domain.ForecastModel, error) {
	if !bloodType.IsValid() {
		return nil, &domain.ModelNotFoundError{BloodType: string(bloodType)}
	}
	return r.snapshot.Load().models[bloodType], nil
}

// List returns metadata for every model in canonical blood-type order.
func (r *Registry) List() []domain.ModelMetadata {
	snap := r.snapshot.Load()
	out := make([]domain.ModelMetadata, len(snap.metadata))
	copy(out, snap.metadata)
	return out
}

// Version returns the version of the currently installed snapshot.
func (r *Registry) Version() uint64 {
	return r.snapshot.Load().version
}

// Reload re-reads the artifact directory and installs a new snapshot. A
// missing directory or index is not an error: every type falls back to its
// synthetic baseline. Individual artifact failures are logged, recorded in
// the summary, and replaced by synthetics; in-flight readers keep the old
// snapshot until the swap.
func (r *Registry) Reload(ctx context.Context) (domain.ReloadSummary, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.ReloadSummary{}, err
	}

	start := time.Now()
	index := r.readIndex()

	trained := make(map[domain.BloodType]*domain.ForecastModel)
	var failed []string
	for _, bt := range domain.AllBloodTypes() {
		filename, ok := index.Models[string(bt)]
		if !ok {
			continue
		}

		art, err := readArtifact(filepath.Join(r.dir, filename), bt)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"blood_type": bt.String(),
				"artifact":   filename,
				"error":      err.Error(),
			}).Warn("Model artifact rejected, using synthetic baseline")
			failed = append(failed, fmt.Sprintf("%s: %v", bt, err))
			continue
		}
		trained[bt] = art.toModel()
	}

	prev := r.snapshot.Load()
	next := buildSnapshot(trained, prev.version+1, time.Now().UTC())
	r.snapshot.Store(next)

	summary := domain.ReloadSummary{
		Version:     next.version,
		Loaded:      len(trained),
		Synthetic:   len(domain.AllBloodTypes()) - len(trained),
		Failed:      failed,
		CompletedAt: next.loadedAt,
	}

	r.logger.WithFields(logrus.Fields{
		"version":     summary.Version,
		"loaded":      summary.Loaded,
		"synthetic":   summary.Synthetic,
		"failed":      len(summary.Failed),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Model registry reloaded")

	return summary, nil
}

// readIndex loads the artifact index; absence yields an empty index.
func (r *Registry) readIndex() artifactIndex {
	index := artifactIndex{Models: map[string]string{}}

	raw, err := os.ReadFile(filepath.Join(r.dir, r.indexFile))
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.WithFields(logrus.Fields{
				"dir":   r.dir,
				"error": err.Error(),
			}).Warn("Model index unreadable, serving synthetic baselines")
		} else {
			r.logger.WithField("dir", r.dir).Info("No model index found, serving synthetic baselines")
		}
		return index
	}

	if err := json.Unmarshal(raw, &index); err != nil {
		r.logger.WithFields(logrus.Fields{
			"dir":   r.dir,
			"error": err.Error(),
		}).Warn("Model index malformed, serving synthetic baselines")
		return artifactIndex{Models: map[string]string{}}
	}
	if index.Models == nil {
		index.Models = map[string]string{}
	}
	return index
}

// buildSnapshot fills the gaps in trained with synthetic baselines so the
// resulting model set always covers all eight blood types.
func buildSnapshot(trained map[domain.BloodType]*domain.ForecastModel, version uint64, at time.Time) *snapshot {
	models := make(map[domain.BloodType]*domain.ForecastModel, len(domain.AllBloodTypes()))
	metadata := make([]domain.ModelMetadata, 0, len(domain.AllBloodTypes()))

	for _, bt := range domain.AllBloodTypes() {
		model, ok := trained[bt]
		if !ok {
			model = syntheticModel(bt, at)
		}
		models[bt] = model
		metadata = append(metadata, model.Metadata)
	}

	return &snapshot{
		models:   models,
		metadata: metadata,
		version:  version,
		loadedAt: at,
	}
}
