package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/crypto"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/intelligence"
	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/metrics"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
)

const snapshotKey = "settings"

// SettingsService is the secrets-aware configuration store.
type SettingsService interface {
	// Get returns every known key with defaults filled in. Secrets are masked.
	Get(ctx context.Context) ([]models.SettingView, error)

	// BatchUpdate applies each key independently and reports per-key outcomes.
	BatchUpdate(ctx context.Context, updates []models.SettingUpdate) (*models.BatchResult, error)

	// Snapshot returns the typed, decrypted settings. The result is shared; do not modify it.
	Snapshot(ctx context.Context) (*models.Settings, error)

	// TestProviderConnection checks a credential without running an analysis.
	// An empty or masked key falls back to the stored one.
	TestProviderConnection(ctx context.Context, req models.ProviderTestRequest) (*models.ProviderTestResult, error)
}

type settingsService struct {
	repo      repositories.SystemConfigRepository
	audit     AuditService
	tx        database.Transactor
	encryptor *crypto.SecretEncryptor
	tester    intelligence.ConnectionTester
	metrics   *metrics.Metrics
	logger    *zap.Logger

	cache      *cache.Cache
	rebuild    singleflight.Group
	generation atomic.Uint64
	// epoch changes on every invalidation; a rebuild that straddles one is not cached.
	epoch atomic.Uint64
}

// NewSettingsService creates a SettingsService. Snapshots are cached for ttl.
func NewSettingsService(
	repo repositories.SystemConfigRepository,
	audit AuditService,
	tx database.Transactor,
	encryptor *crypto.SecretEncryptor,
	tester intelligence.ConnectionTester,
	ttl time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) SettingsService {
	return &settingsService{
		repo:      repo,
		audit:     audit,
		tx:        tx,
		encryptor: encryptor,
		tester:    tester,
		metrics:   m,
		logger:    logger.Named("settings"),
		// Single entry; expiry is checked on read so no janitor goroutine is needed.
		cache: cache.New(ttl, 0),
	}
}

var _ SettingsService = (*settingsService)(nil)

func (s *settingsService) Get(ctx context.Context) ([]models.SettingView, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	stored, err := s.storedByKey(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.SettingView, 0, len(models.SettingDefinitions))
	for _, def := range models.SettingDefinitions {
		view := models.SettingView{
			Key:       def.Key,
			Value:     def.Default,
			IsSecret:  def.Secret,
			Category:  def.Category,
			IsDefault: true,
		}
		if row, ok := stored[def.Key]; ok {
			view.Value = row.Value
			view.IsDefault = false
			view.UpdatedBy = row.UpdatedBy
			updatedAt := row.UpdatedAt
			view.UpdatedAt = &updatedAt
		}
		if def.Secret && view.Value != "" {
			view.Value = models.MaskedSecret
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *settingsService) BatchUpdate(ctx context.Context, updates []models.SettingUpdate) (*models.BatchResult, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperrors.NewValidationError("settings", "is required")
	}

	stored, err := s.storedByKey(ctx)
	if err != nil {
		return nil, err
	}
	current := effectiveValues(stored)

	result := &models.BatchResult{Updated: []string{}, Skipped: []string{}, Failed: []models.SettingFailure{}}
	fail := func(key string, err error) {
		result.Failed = append(result.Failed, models.SettingFailure{Key: key, Error: err.Error()})
		s.metrics.IncSettingsUpdate(metrics.OutcomeError)
	}

	// Normalize each key on its own first, then check threshold pairs against the proposed state.
	type pending struct {
		def   models.SettingDefinition
		value string
	}
	var accepted []pending
	proposed := make(map[string]string, len(current))
	for k, v := range current {
		proposed[k] = v
	}

	for _, u := range lastPerKey(updates) {
		def, ok := models.LookupSetting(u.Key)
		if !ok {
			fail(u.Key, fmt.Errorf("unknown setting"))
			continue
		}
		if def.Secret && u.Value == models.MaskedSecret {
			result.Skipped = append(result.Skipped, u.Key)
			s.metrics.IncSettingsUpdate(metrics.OutcomeSkipped)
			continue
		}
		value, err := normalizeSetting(def, u.Value)
		if err != nil {
			fail(u.Key, err)
			continue
		}
		if !def.Secret && value == current[def.Key] {
			result.Skipped = append(result.Skipped, u.Key)
			s.metrics.IncSettingsUpdate(metrics.OutcomeSkipped)
			continue
		}
		proposed[def.Key] = value
		accepted = append(accepted, pending{def: def, value: value})
	}

	inverted := invertedPairs(proposed)
	for _, p := range accepted {
		if partner, bad := inverted[p.def.Key]; bad {
			fail(p.def.Key, fmt.Errorf("would invert the threshold pair with %s", partner))
			continue
		}
		if err := s.write(ctx, actor, p.def, p.value, current[p.def.Key]); err != nil {
			fail(p.def.Key, err)
			continue
		}
		result.Updated = append(result.Updated, p.def.Key)
		s.metrics.IncSettingsUpdate(metrics.OutcomeSuccess)
	}

	if len(result.Updated) > 0 {
		s.invalidate()
		s.logger.Info("Settings updated",
			zap.String("actor", actor.ID),
			zap.Strings("updated", result.Updated),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// write persists one key and its audit entry atomically.
func (s *settingsService) write(ctx context.Context, actor models.Actor, def models.SettingDefinition, value, previous string) error {
	stored := value
	details := map[string]any{"key": def.Key}

	if def.Secret {
		enc, err := s.encryptor.Encrypt(value)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		stored = enc
		details["secret"] = true
		details["cleared"] = value == ""
	} else {
		details["from"] = previous
		details["to"] = value
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Upsert(ctx, &models.SystemConfig{
			Key:       def.Key,
			Value:     stored,
			IsSecret:  def.Secret,
			Category:  def.Category,
			UpdatedBy: actor.ID,
		}); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditEntitySystemConfig, settingEntityID(def.Key), models.AuditActionUpdate, details)
	})
}

// invalidate drops the cached snapshot after a committed write.
// Bumping the epoch first keeps an in-flight rebuild that read the old rows from caching them.
func (s *settingsService) invalidate() {
	s.epoch.Add(1)
	s.rebuild.Forget(snapshotKey)
	s.cache.Delete(snapshotKey)
}

func (s *settingsService) Snapshot(ctx context.Context) (*models.Settings, error) {
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return cached.(*models.Settings), nil
	}

	v, err, _ := s.rebuild.Do(snapshotKey, func() (any, error) {
		if cached, ok := s.cache.Get(snapshotKey); ok {
			return cached, nil
		}
		epoch := s.epoch.Load()
		snap, err := s.buildSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if s.epoch.Load() == epoch {
			s.cache.SetDefault(snapshotKey, snap)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Settings), nil
}

func (s *settingsService) buildSnapshot(ctx context.Context) (*models.Settings, error) {
	stored, err := s.storedByKey(ctx)
	if err != nil {
		return nil, err
	}
	values := effectiveValues(stored)

	snap := &models.Settings{
		Provider:            values[models.KeyLLMProvider],
		APIKeys:             make(map[string]string),
		EnableLLMAnalysis:   s.parseBool(values, models.KeyEnableLLMAnalysis),
		EnableStyleAnalysis: s.parseBool(values, models.KeyEnableStyleAnalysis),
		EnableCitationCheck: s.parseBool(values, models.KeyEnableCitationCheck),
	}

	for _, p := range intelligence.AllProviders() {
		key := models.APIKeySetting(string(p))
		if key == "" || values[key] == "" {
			continue
		}
		plain, err := s.encryptor.Decrypt(values[key])
		if err != nil {
			// Only the selected provider's key is needed to analyze.
			if string(p) == snap.Provider {
				return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrCredentialsKeyMismatch, key, err)
			}
			s.logger.Warn("Skipping undecryptable credential",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		snap.APIKeys[string(p)] = plain
	}

	snap.Thresholds = models.Thresholds{
		StyleMatch:         s.pair(values, models.KeyIntegrityThresholdLow, models.KeyIntegrityThresholdMedium),
		AIRisk:             s.pair(values, models.KeyRiskThresholdMedium, models.KeyRiskThresholdHigh),
		InternalSimilarity: s.pair(values, models.KeySimilarityThresholdLow, models.KeySimilarityThresholdMed),
		Citation:           s.pair(values, models.KeyCitationThresholdLow, models.KeyCitationThresholdMedium),
	}
	snap.Generation = s.generation.Add(1)

	s.logger.Debug("Settings snapshot rebuilt",
		zap.Uint64("generation", snap.Generation),
		zap.String("provider", snap.Provider))
	return snap, nil
}

func (s *settingsService) TestProviderConnection(ctx context.Context, req models.ProviderTestRequest) (*models.ProviderTestResult, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	provider, err := intelligence.ParseProviderName(req.Provider)
	if err != nil {
		return nil, err
	}

	apiKey := req.APIKey
	if apiKey == "" || apiKey == models.MaskedSecret {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		apiKey = snap.APIKey(string(provider))
	}

	result := s.tester.TestConnection(ctx, provider, apiKey)
	s.logger.Info("Provider connection tested",
		zap.String("provider", string(provider)),
		zap.Bool("success", result.Success))
	return result, nil
}

func (s *settingsService) storedByKey(ctx context.Context) (map[string]*models.SystemConfig, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*models.SystemConfig, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	return byKey, nil
}

// parseBool and pair fall back to the default when a stored value no longer parses.
func (s *settingsService) parseBool(values map[string]string, key string) bool {
	v, err := strconv.ParseBool(values[key])
	if err != nil {
		def, _ := models.LookupSetting(key)
		s.logger.Warn("Ignoring unparseable setting", zap.String("key", key))
		v, _ = strconv.ParseBool(def.Default)
	}
	return v
}

func (s *settingsService) pair(values map[string]string, lowKey, mediumKey string) models.ThresholdPair {
	return models.ThresholdPair{Low: s.parseFloat(values, lowKey), Medium: s.parseFloat(values, mediumKey)}
}

func (s *settingsService) parseFloat(values map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(values[key], 64)
	if err != nil {
		def, _ := models.LookupSetting(key)
		s.logger.Warn("Ignoring unparseable setting", zap.String("key", key))
		v, _ = strconv.ParseFloat(def.Default, 64)
	}
	return v
}

// effectiveValues merges stored values over defaults. Secrets stay in stored form.
// lastPerKey drops all but the last update for each key, keeping batch order otherwise.
func lastPerKey(updates []models.SettingUpdate) []models.SettingUpdate {
	last := make(map[string]int, len(updates))
	for i, u := range updates {
		last[u.Key] = i
	}
	out := make([]models.SettingUpdate, 0, len(last))
	for i, u := range updates {
		if last[u.Key] == i {
			out = append(out, u)
		}
	}
	return out
}

func effectiveValues(stored map[string]*models.SystemConfig) map[string]string {
	values := make(map[string]string, len(models.SettingDefinitions))
	for _, def := range models.SettingDefinitions {
		values[def.Key] = def.Default
		if row, ok := stored[def.Key]; ok {
			values[def.Key] = row.Value
		}
	}
	return values
}

// normalizeSetting validates raw against the key's type and returns its canonical form.
func normalizeSetting(def models.SettingDefinition, raw string) (string, error) {
	value := strings.TrimSpace(raw)

	switch def.Kind {
	case models.KindProvider:
		p, err := intelligence.ParseProviderName(strings.ToLower(value))
		if err != nil {
			return "", fmt.Errorf("unknown provider %q", raw)
		}
		return string(p), nil
	case models.KindThreshold:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", fmt.Errorf("must be a number")
		}
		if v < 0 || v > 100 || v != v {
			return "", fmt.Errorf("must be between 0 and 100")
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case models.KindBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("must be true or false")
		}
		return strconv.FormatBool(v), nil
	case models.KindSecret:
		return value, nil
	default:
		return "", fmt.Errorf("unsupported setting kind %s", def.Kind)
	}
}

// thresholdPair relates the two bounds of one metric.
// For higher-is-safer metrics low must not be below medium; for the others it must not be above.
type thresholdPair struct {
	low, medium   string
	higherIsSafer bool
}

var thresholdPairs = []thresholdPair{
	{low: models.KeyIntegrityThresholdLow, medium: models.KeyIntegrityThresholdMedium, higherIsSafer: true},
	{low: models.KeyRiskThresholdMedium, medium: models.KeyRiskThresholdHigh},
	{low: models.KeySimilarityThresholdLow, medium: models.KeySimilarityThresholdMed},
	{low: models.KeyCitationThresholdLow, medium: models.KeyCitationThresholdMedium, higherIsSafer: true},
}

// invertedPairs maps each key of an inverted pair to its partner.
func invertedPairs(values map[string]string) map[string]string {
	bad := make(map[string]string)
	for _, p := range thresholdPairs {
		low, errLow := strconv.ParseFloat(values[p.low], 64)
		medium, errMed := strconv.ParseFloat(values[p.medium], 64)
		if errLow != nil || errMed != nil {
			continue
		}
		if (p.higherIsSafer && low < medium) || (!p.higherIsSafer && low > medium) {
			bad[p.low] = p.medium
			bad[p.medium] = p.low
		}
	}
	return bad
}

// settingEntityID derives a stable audit entity id for a setting key.
func settingEntityID(key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("system_config:"+key))
}
