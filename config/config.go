// Package config resolves the workflow configuration from the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hupe1980/s3vkit/filter"
	"github.com/hupe1980/s3vkit/model"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ErrConfig is returned for missing or malformed configuration.
var ErrConfig = errors.New("config error")

// Viper keys.
const (
	KeyBucket        = "bucket"
	KeyIndex         = "index"
	KeyDimension     = "dimension"
	KeyDataType      = "data_type"
	KeyMetric        = "metric"
	KeyTopK          = "top_k"
	KeyFilterJSON    = "filter_json"
	KeyFilterKind    = "filter_kind"
	KeyMinSimilarity = "min_similarity"
	KeyCleanup       = "cleanup"
	KeyRegion        = "region"
	KeyTimeout       = "timeout"
	KeyMaxRPS        = "max_rps"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
)

// Defaults.
const (
	DefaultDimension = 1536
	DefaultTopK      = 5
	DefaultRegion    = "us-east-1"
	DefaultTimeout   = 30 * time.Second
)

// envNames maps each key to the environment variables it is read from, in
// precedence order.
var envNames = map[string][]string{
	KeyBucket:        {"S3V_BUCKET"},
	KeyIndex:         {"S3V_INDEX"},
	KeyDimension:     {"S3V_DIMENSION"},
	KeyDataType:      {"S3V_DATA_TYPE"},
	KeyMetric:        {"S3V_METRIC"},
	KeyTopK:          {"S3V_K"},
	KeyFilterJSON:    {"S3V_FILTER_JSON"},
	KeyFilterKind:    {"S3V_FILTER_KIND"},
	KeyMinSimilarity: {"S3V_MIN_SIMILARITY"},
	KeyCleanup:       {"S3V_CLEANUP"},
	KeyRegion:        {"S3V_REGION", "AWS_REGION", "AWS_DEFAULT_REGION"},
	KeyTimeout:       {"S3V_TIMEOUT"},
	KeyMaxRPS:        {"S3V_MAX_RPS"},
	KeyLogLevel:      {"S3V_LOG_LEVEL"},
	KeyLogFormat:     {"S3V_LOG_FORMAT"},
}

// NewViper returns a viper registry with defaults and environment bindings
// for every key. Flags bound later with BindPFlag take precedence over env.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyDimension, DefaultDimension)
	v.SetDefault(KeyDataType, string(model.DataTypeFloat32))
	v.SetDefault(KeyMetric, string(model.MetricCosine))
	v.SetDefault(KeyTopK, DefaultTopK)
	v.SetDefault(KeyRegion, DefaultRegion)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyMaxRPS, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	for key, envs := range envNames {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Config is the resolved, validated workflow configuration.
// It is immutable after Resolve returns.
type Config struct {
	index         model.IndexDescriptor
	topK          int
	filterJSON    string
	filterKind    string
	filter        *filter.Expression
	minSimilarity *float64
	cleanup       bool
	region        string
	timeout       time.Duration
	maxRPS        float64
	logLevel      string
	logFormat     string
}

// Resolve reads and validates every key. It fails fast with ErrConfig on the
// first missing or malformed value and never touches the network.
func Resolve(v *viper.Viper) (*Config, error) {
	c := &Config{}

	bucket, err := requireString(v, KeyBucket)
	if err != nil {
		return nil, err
	}
	index, err := requireString(v, KeyIndex)
	if err != nil {
		return nil, err
	}
	dimension, err := positiveInt(v, KeyDimension)
	if err != nil {
		return nil, err
	}
	dataType, err := model.ParseDataType(v.GetString(KeyDataType))
	if err != nil {
		return nil, configErr(KeyDataType, err)
	}
	metric, err := model.ParseMetric(v.GetString(KeyMetric))
	if err != nil {
		return nil, configErr(KeyMetric, err)
	}
	c.index = model.IndexDescriptor{
		Bucket:    bucket,
		Index:     index,
		Dimension: dimension,
		DataType:  dataType,
		Metric:    metric,
	}

	if c.topK, err = positiveInt(v, KeyTopK); err != nil {
		return nil, err
	}

	c.filterJSON = strings.TrimSpace(v.GetString(KeyFilterJSON))
	c.filterKind = strings.TrimSpace(v.GetString(KeyFilterKind))
	switch {
	case c.filterJSON != "":
		f, err := filter.Parse(c.filterJSON)
		if err != nil {
			return nil, configErr(KeyFilterJSON, err)
		}
		c.filter = f
	case c.filterKind != "":
		c.filter = filter.Eq("kind", c.filterKind)
	}

	if raw := strings.TrimSpace(v.GetString(KeyMinSimilarity)); raw != "" {
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, configErr(KeyMinSimilarity, err)
		}
		if f < 0 || f > 1 {
			return nil, configErr(KeyMinSimilarity, fmt.Errorf("%v is outside [0,1]", f))
		}
		c.minSimilarity = &f
	}

	if c.cleanup, err = parseFlag(v.GetString(KeyCleanup)); err != nil {
		return nil, configErr(KeyCleanup, err)
	}

	c.region = region(v)

	if c.timeout, err = positiveDuration(v, KeyTimeout); err != nil {
		return nil, err
	}

	if c.maxRPS, err = cast.ToFloat64E(v.Get(KeyMaxRPS)); err != nil {
		return nil, configErr(KeyMaxRPS, err)
	}
	if c.maxRPS < 0 {
		return nil, configErr(KeyMaxRPS, fmt.Errorf("must not be negative, got %v", c.maxRPS))
	}

	c.logLevel = strings.ToLower(v.GetString(KeyLogLevel))
	c.logFormat = strings.ToLower(v.GetString(KeyLogFormat))

	return c, nil
}

// Index returns the target index descriptor.
func (c *Config) Index() model.IndexDescriptor { return c.index }

// TopK returns the number of neighbors to request.
func (c *Config) TopK() int { return c.topK }

// Filter returns the configured filter, or nil.
func (c *Config) Filter() *filter.Expression { return c.filter }

// FilterJSON returns the raw filter document as configured.
func (c *Config) FilterJSON() string { return c.filterJSON }

// FilterKind returns the "kind" shorthand filter value, if configured.
func (c *Config) FilterKind() string { return c.filterKind }

// MinSimilarity returns the cosine similarity threshold, if configured.
//
// The threshold is only honored for cosine indexes and is ignored otherwise.
func (c *Config) MinSimilarity() (float64, bool) {
	if c.minSimilarity == nil {
		return 0, false
	}
	return *c.minSimilarity, true
}

// Cleanup reports whether written records should be deleted after the run.
func (c *Config) Cleanup() bool { return c.cleanup }

// Region returns the AWS region.
func (c *Config) Region() string { return c.region }

// Timeout returns the per-call timeout.
func (c *Config) Timeout() time.Duration { return c.timeout }

// MaxRPS returns the client-side request rate limit; 0 means unlimited.
func (c *Config) MaxRPS() float64 { return c.maxRPS }

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string { return c.logLevel }

// LogFormat returns the configured log format ("text" or "json").
func (c *Config) LogFormat() string { return c.logFormat }

// CheckConfig holds the settings used by the credential check.
type CheckConfig struct {
	Bucket    string
	Region    string
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// ResolveCheck reads the bucket, region and timeout. Unlike Resolve it does
// not require index settings.
func ResolveCheck(v *viper.Viper) (*CheckConfig, error) {
	bucket, err := requireString(v, KeyBucket)
	if err != nil {
		return nil, err
	}
	timeout, err := positiveDuration(v, KeyTimeout)
	if err != nil {
		return nil, err
	}
	return &CheckConfig{
		Bucket:    bucket,
		Region:    region(v),
		Timeout:   timeout,
		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),
	}, nil
}

func requireString(v *viper.Viper, key string) (string, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return "", configErr(key, fmt.Errorf("missing required value (env %s)", strings.Join(envNames[key], " or ")))
	}
	return s, nil
}

func region(v *viper.Viper) string {
	if r := strings.TrimSpace(v.GetString(KeyRegion)); r != "" {
		return r
	}
	return DefaultRegion
}

// positiveDuration accepts Go duration strings. A bare decimal number is
// read as seconds.
func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if isDecimal(s) {
			s += "s"
		}
		raw = s
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return 0, configErr(key, err)
	}
	if d <= 0 {
		return 0, configErr(key, fmt.Errorf("must be positive, got %s", d))
	}
	return d, nil
}

// positiveInt accepts base-10 strings only. Leading zeros are kept decimal.
func positiveInt(v *viper.Viper, key string) (int, error) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if !isDecimal(s) {
			return 0, configErr(key, fmt.Errorf("invalid decimal integer %q", s))
		}
		if trimmed := strings.TrimLeft(s, "0"); trimmed != "" {
			s = trimmed
		} else {
			s = "0"
		}
		raw = s
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, configErr(key, err)
	}
	if n <= 0 {
		return 0, configErr(key, fmt.Errorf("must be a positive integer, got %d", n))
	}
	if n > math.MaxInt32 {
		return 0, configErr(key, fmt.Errorf("must not exceed %d, got %d", math.MaxInt32, n))
	}
	return n, nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true, nil
	case "", "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func configErr(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfig, key, err)
}
