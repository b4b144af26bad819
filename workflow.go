package s3vkit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hupe1980/s3vkit/config"
	"github.com/hupe1980/s3vkit/filter"
	"github.com/hupe1980/s3vkit/model"
)

// State is a workflow progress marker.
type State int

// Workflow states in order of progress.
const (
	StateStart State = iota
	StateProvisioned
	StateWritten
	StateQueried
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateProvisioned:
		return "PROVISIONED"
	case StateWritten:
		return "WRITTEN"
	case StateQueried:
		return "QUERIED"
	case StateCleaned:
		return "CLEANED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scenario describes the records a workflow run writes and how it queries
// them.
type Scenario struct {
	Name string

	// Records builds the records to write. suffix is unique per run and
	// embed returns a fresh random embedding of the index dimension.
	Records func(suffix string, embed func() []float32) []model.VectorRecord

	// Filter restricts the query. Nil queries without a filter.
	Filter *filter.Expression

	// Cleanup deletes the written records once the run finishes, on both
	// success and failure.
	Cleanup bool

	// Verify is evaluated against the returned metadata. The run fails
	// with ErrFilterMismatch if any match does not satisfy it. Nil skips
	// verification.
	Verify *filter.Expression
}

// SmokeScenario writes two records tagged kind=smoke, queries with the
// configured filter and deletes them when cleanup is enabled. When a filter
// kind is configured every match must carry that kind, also when a filter
// document takes precedence for the query itself.
func SmokeScenario(cfg *config.Config) Scenario {
	var verify *filter.Expression
	if kind := cfg.FilterKind(); kind != "" {
		verify = filter.Eq("kind", kind)
	}
	return Scenario{
		Name: "smoke",
		Records: func(suffix string, embed func() []float32) []model.VectorRecord {
			return []model.VectorRecord{
				{Key: "smoke-1-" + suffix, Embedding: embed(), Metadata: model.Metadata{"kind": "smoke", "n": "1"}},
				{Key: "smoke-2-" + suffix, Embedding: embed(), Metadata: model.Metadata{"kind": "smoke", "n": "2"}},
			}
		},
		Filter:  cfg.Filter(),
		Cleanup: cfg.Cleanup(),
		Verify:  verify,
	}
}

// HybridFilter selects apples originating from NL or DE.
func HybridFilter() *filter.Expression {
	return filter.And(
		filter.Eq("category", "apples"),
		filter.In("origin", "NL", "DE"),
	)
}

// HybridScenario writes three records with category and origin metadata,
// queries with HybridFilter and always cleans up.
func HybridScenario() Scenario {
	return Scenario{
		Name: "hybrid",
		Records: func(suffix string, embed func() []float32) []model.VectorRecord {
			return []model.VectorRecord{
				{Key: "hybrid-apples-nl-" + suffix, Embedding: embed(), Metadata: model.Metadata{"category": "apples", "origin": "NL"}},
				{Key: "hybrid-apples-de-" + suffix, Embedding: embed(), Metadata: model.Metadata{"category": "apples", "origin": "DE"}},
				{Key: "hybrid-bananas-ec-" + suffix, Embedding: embed(), Metadata: model.Metadata{"category": "bananas", "origin": "EC"}},
			}
		},
		Filter:  HybridFilter(),
		Cleanup: true,
		Verify:  HybridFilter(),
	}
}

// Report summarizes a workflow run. It is returned even when the run fails
// and then reflects how far the run progressed.
type Report struct {
	Scenario   string
	Index      model.IndexDescriptor
	State      State
	Bucket     Outcome
	IndexState Outcome
	Keys       []string
	Filter     *filter.Expression
	Result     model.QueryResult
	Duration   time.Duration

	// CleanupErr holds the cleanup failure, including one that was
	// suppressed because an earlier stage failed.
	CleanupErr error
}

// Workflow drives provision, write, query and cleanup against a single
// index.
type Workflow struct {
	client        *Client
	desc          model.IndexDescriptor
	topK          int
	minSimilarity *float64
	rng           *rand.Rand
	suffix        func() string
}

// WorkflowOption configures a Workflow.
type WorkflowOption func(*Workflow)

// WithRand sets the source of random embeddings.
func WithRand(r *rand.Rand) WorkflowOption {
	return func(w *Workflow) {
		if r != nil {
			w.rng = r
		}
	}
}

// WithKeySuffix fixes the per-run key suffix.
func WithKeySuffix(suffix string) WorkflowOption {
	return func(w *Workflow) {
		w.suffix = func() string { return suffix }
	}
}

// NewWorkflow creates a Workflow for the index, top k and threshold in cfg.
func NewWorkflow(client *Client, cfg *config.Config, optFns ...WorkflowOption) *Workflow {
	w := &Workflow{
		client: client,
		desc:   cfg.Index(),
		topK:   cfg.TopK(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // test data
		suffix: newSuffix,
	}
	if t, ok := cfg.MinSimilarity(); ok {
		w.minSimilarity = &t
	}
	for _, fn := range optFns {
		fn(w)
	}
	return w
}

func newSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (w *Workflow) embed() []float32 {
	v := make([]float32, w.desc.Dimension)
	for i := range v {
		v[i] = w.rng.Float32()
	}
	return v
}

// Run executes sc. Provisioning is idempotent. Once keys are tracked and
// sc.Cleanup is set, they are deleted whatever happens afterwards and the
// report reaches StateCleaned if the delete succeeds.
func (w *Workflow) Run(ctx context.Context, sc Scenario) (*Report, error) {
	start := time.Now()
	log := w.client.opts.logger.With("scenario", sc.Name)

	report := &Report{
		Scenario: sc.Name,
		Index:    w.desc,
		State:    StateStart,
		Filter:   sc.Filter,
	}
	defer func() { report.Duration = time.Since(start) }()

	var err error
	if report.Bucket, err = w.client.EnsureBucket(ctx, w.desc.Bucket); err != nil {
		return report, err
	}
	if report.IndexState, err = w.client.EnsureIndex(ctx, w.desc); err != nil {
		return report, err
	}
	report.State = StateProvisioned
	log.InfoContext(ctx, "workflow provisioned", "index", w.desc.String())

	records := sc.Records(w.suffix(), w.embed)
	if err := ValidateRecords(w.desc, records); err != nil {
		return report, newStageError(StageWrite, "put vectors", err)
	}
	report.Keys = lo.Map(records, func(r model.VectorRecord, _ int) string { return r.Key })

	body := func(ctx context.Context) (model.QueryResult, error) {
		if _, err := w.client.Put(ctx, w.desc, records); err != nil {
			return model.QueryResult{}, err
		}
		report.State = StateWritten

		res, err := w.client.Query(ctx, w.desc, QueryRequest{
			Vector:        w.embed(),
			TopK:          w.topK,
			Filter:        sc.Filter,
			MinSimilarity: w.minSimilarity,
		})
		if err != nil {
			return model.QueryResult{}, err
		}
		report.Result = res
		report.State = StateQueried

		if sc.Verify != nil {
			if bad := VerifyFilter(sc.Verify, res); len(bad) > 0 {
				return res, newStageError(StageQuery, "verify filter",
					fmt.Errorf("%w: non-matching keys %v", ErrFilterMismatch, bad))
			}
		}
		return res, nil
	}

	if !sc.Cleanup {
		_, err = body(ctx)
		return report, err
	}

	_, err, report.CleanupErr = runScoped(ctx, w.client, w.desc, report.Keys, body)
	if report.CleanupErr == nil {
		report.State = StateCleaned
	}
	return report, err
}
