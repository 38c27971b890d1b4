// Package pipeline - Quality check and species-constrained diagnosis of leaf photographs.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-plantdx/images"
	"github.com/nvr-ai/go-plantdx/inference"
	"github.com/nvr-ai/go-plantdx/models"
	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/nvr-ai/go-plantdx/quality"
	"github.com/nvr-ai/go-plantdx/treatment"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Report is the full answer for one photograph.
type Report struct {
	// RequestID correlates the report with log lines.
	RequestID string `json:"requestId"`
	// Quality is the blur verdict. When it is blurry nothing else is filled in.
	Quality quality.Verdict `json:"quality"`
	// Outcome is the diagnosis, nil for blurry photographs.
	Outcome *models.Outcome `json:"outcome,omitempty"`
	// Species is the display name of the species.
	Species string `json:"species,omitempty"`
	// Disease is the display name of the disease.
	Disease string `json:"disease,omitempty"`
	// CommonName is the species and disease display names joined.
	CommonName string `json:"commonName,omitempty"`
	// Treatment is the stored guidance, or the generic fallback.
	Treatment *treatment.Treatment `json:"treatment,omitempty"`
	// TreatmentFound is false when Treatment is the fallback.
	TreatmentFound bool `json:"treatmentFound"`
}

// Service runs the diagnosis pipeline. It holds no per-request state and is safe for
// concurrent use as long as its classifier is.
type Service struct {
	registry   *models.Registry
	gate       quality.Gate
	pre        *preprocess.Preprocessor
	classifier inference.Classifier
	treatments treatment.Resolver
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGate replaces the default quality gate.
func WithGate(g quality.Gate) Option {
	return func(s *Service) { s.gate = g }
}

// WithTreatments sets the guidance resolver used by Analyze.
func WithTreatments(r treatment.Resolver) Option {
	return func(s *Service) { s.treatments = r }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService assembles a pipeline.
//
// Arguments:
//   - registry: The class layout the classifier was trained with.
//   - pre: The preprocessor matching the classifier input.
//   - classifier: The score producer, typically an *inference.Lazy.
//   - opts: Optional gate, treatment resolver and logger.
//
// Returns:
//   - *Service: The pipeline.
//   - error: If a required component is missing or the gate is invalid.
func NewService(registry *models.Registry, pre *preprocess.Preprocessor, classifier inference.Classifier, opts ...Option) (*Service, error) {
	if registry == nil || pre == nil || classifier == nil {
		return nil, errors.New("pipeline needs a registry, a preprocessor and a classifier")
	}
	s := &Service{
		registry:   registry,
		gate:       quality.DefaultGate(),
		pre:        pre,
		classifier: classifier,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.gate.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Registry returns the class registry the service decodes against.
func (s *Service) Registry() *models.Registry {
	return s.registry
}

// CheckQuality decodes a photograph and reports whether it is too blurry to diagnose.
func (s *Service) CheckQuality(ctx context.Context, data []byte) (quality.Verdict, error) {
	log := s.logger.With(zap.String("request_id", uuid.NewString()))

	img, err := s.decode(ctx, data)
	if err != nil {
		return quality.Verdict{}, s.fail(log, "decode", err)
	}
	v, err := s.verdict(img)
	if err != nil {
		return quality.Verdict{}, s.fail(log, "quality", err)
	}
	log.Debug("quality checked", zap.Float64("sharpness", v.SharpnessScore), zap.Bool("blurry", v.IsBlurry))
	return v, nil
}

// Diagnose classifies a photograph, choosing only among the classes of the given species.
//
// The species is resolved before the image is touched, so an unknown species fails fast.
// No quality gate is applied; callers that want one use Analyze.
//
// Arguments:
//   - ctx: Checked before decoding and before inference.
//   - data: The encoded photograph.
//   - species: The species the caller selected.
//
// Returns:
//   - *models.Outcome: The winning class.
//   - error: See Classify for the categories.
func (s *Service) Diagnose(ctx context.Context, data []byte, species models.SpeciesID) (*models.Outcome, error) {
	log := s.logger.With(zap.String("request_id", uuid.NewString()), zap.String("species", string(species)))

	if _, err := s.registry.Allowed(species); err != nil {
		return nil, s.fail(log, "species", err)
	}
	img, err := s.decode(ctx, data)
	if err != nil {
		return nil, s.fail(log, "decode", err)
	}
	return s.diagnose(ctx, log, img, species)
}

// Analyze runs the quality gate and, for sharp photographs, the diagnosis, then attaches
// display names and treatment guidance.
//
// A blurry photograph is a normal result: the report carries the verdict and a nil Outcome,
// and the classifier is never called.
func (s *Service) Analyze(ctx context.Context, data []byte, species models.SpeciesID) (*Report, error) {
	id := uuid.NewString()
	log := s.logger.With(zap.String("request_id", id), zap.String("species", string(species)))

	if _, err := s.registry.Allowed(species); err != nil {
		return nil, s.fail(log, "species", err)
	}
	img, err := s.decode(ctx, data)
	if err != nil {
		return nil, s.fail(log, "decode", err)
	}

	verdict, err := s.verdict(img)
	if err != nil {
		return nil, s.fail(log, "quality", err)
	}
	report := &Report{RequestID: id, Quality: verdict}
	if verdict.IsBlurry {
		log.Info("photograph too blurry", zap.Float64("sharpness", verdict.SharpnessScore),
			zap.Float64("threshold", verdict.Threshold))
		return report, nil
	}

	outcome, err := s.diagnose(ctx, log, img, species)
	if err != nil {
		return nil, err
	}
	report.Outcome = outcome
	report.Species = models.FormatLabel(string(outcome.SpeciesID))
	report.Disease = models.FormatLabel(string(outcome.DiseaseID))
	report.CommonName = models.CommonName(outcome.SpeciesID, outcome.DiseaseID)

	t, found, err := treatment.Resolve(ctx, s.treatments, report.CommonName)
	if err != nil {
		return nil, s.fail(log, "treatment", err)
	}
	report.Treatment = t
	report.TreatmentFound = found
	if !found {
		log.Debug("no stored treatment", zap.String("common_name", report.CommonName))
	}
	return report, nil
}

func (s *Service) decode(ctx context.Context, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := images.Decode(data)
	return img, err
}

func (s *Service) verdict(img image.Image) (quality.Verdict, error) {
	gray, err := images.NewGrayGrid(img)
	if err != nil {
		return quality.Verdict{}, err
	}
	return s.gate.Evaluate(gray)
}

func (s *Service) diagnose(ctx context.Context, log *zap.Logger, img image.Image, species models.SpeciesID) (*models.Outcome, error) {
	start := time.Now()
	grid, err := images.NewColorGrid(img)
	if err != nil {
		return nil, s.fail(log, "grid", err)
	}
	input, err := s.pre.Preprocess(grid)
	if err != nil {
		return nil, s.fail(log, "preprocess", err)
	}
	log.Debug("preprocessed", zap.Duration("took", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return nil, s.fail(log, "inference", err)
	}
	start = time.Now()
	scores, err := s.classifier.Run(ctx, input)
	if err != nil {
		if !errors.Is(err, inference.ErrModelUnavailable) && !errors.Is(err, inference.ErrInferenceFailed) &&
			ctx.Err() == nil {
			err = errors.Wrap(inference.ErrInferenceFailed, err.Error())
		}
		return nil, s.fail(log, "inference", err)
	}
	log.Debug("classified", zap.Duration("took", time.Since(start)), zap.Int("scores", len(scores)))

	if len(scores) != s.registry.Total() {
		err := errors.Wrapf(inference.ErrInferenceFailed, "classifier returned %d scores, registry has %d classes",
			len(scores), s.registry.Total())
		return nil, s.fail(log, "decode scores", err)
	}

	outcome, err := s.registry.Decode(scores, species)
	if err != nil {
		return nil, s.fail(log, "decode scores", err)
	}
	log.Info("diagnosed",
		zap.Int("class_index", outcome.ClassIndex),
		zap.String("disease", string(outcome.DiseaseID)),
		zap.Float32("raw_score", outcome.RawScore))
	return outcome, nil
}

// fail logs err at a level matching its category and returns it unchanged.
func (s *Service) fail(log *zap.Logger, stage string, err error) error {
	kind := Classify(err)
	fields := []zap.Field{zap.String("stage", stage), zap.Stringer("kind", kind), zap.Error(err)}
	switch kind {
	case KindRuntime, KindResource, KindUnknown:
		log.Error("diagnosis failed", fields...)
	default:
		log.Debug("request rejected", fields...)
	}
	return err
}
