package models

import (
	"time"
)

// MaskedSecret is returned in place of any stored secret value.
const MaskedSecret = "********"

// Setting keys.
const (
	KeyLLMProvider = "llm_provider"

	KeyOpenAIAPIKey    = "openai_api_key"
	KeyAnthropicAPIKey = "anthropic_api_key"
	KeyGeminiAPIKey    = "gemini_api_key"
	KeyDeepSeekAPIKey  = "deepseek_api_key"

	KeyIntegrityThresholdLow    = "integrity_threshold_low"
	KeyIntegrityThresholdMedium = "integrity_threshold_medium"
	KeyRiskThresholdMedium      = "risk_threshold_medium"
	KeyRiskThresholdHigh        = "risk_threshold_high"
	KeySimilarityThresholdLow   = "similarity_threshold_low"
	KeySimilarityThresholdMed   = "similarity_threshold_medium"
	KeyCitationThresholdLow     = "citation_threshold_low"
	KeyCitationThresholdMedium  = "citation_threshold_medium"

	KeyEnableLLMAnalysis   = "enable_llm_analysis"
	KeyEnableStyleAnalysis = "enable_style_analysis"
	KeyEnableCitationCheck = "enable_citation_check"
)

// Setting categories.
const (
	CategoryAnalysis    = "analysis"
	CategoryCredentials = "credentials"
	CategoryRisk        = "risk"
	CategoryFeatures    = "features"
)

// SettingKind is the value type of a setting.
type SettingKind string

const (
	KindProvider  SettingKind = "provider"
	KindSecret    SettingKind = "secret"
	KindThreshold SettingKind = "threshold"
	KindBool      SettingKind = "bool"
)

// SettingDefinition describes one key the store accepts.
type SettingDefinition struct {
	Key      string
	Kind     SettingKind
	Default  string
	Secret   bool
	Category string
}

// SettingDefinitions is the closed registry of setting keys, in display order.
var SettingDefinitions = []SettingDefinition{
	{Key: KeyLLMProvider, Kind: KindProvider, Default: "mock", Category: CategoryAnalysis},
	{Key: KeyOpenAIAPIKey, Kind: KindSecret, Secret: true, Category: CategoryCredentials},
	{Key: KeyAnthropicAPIKey, Kind: KindSecret, Secret: true, Category: CategoryCredentials},
	{Key: KeyGeminiAPIKey, Kind: KindSecret, Secret: true, Category: CategoryCredentials},
	{Key: KeyDeepSeekAPIKey, Kind: KindSecret, Secret: true, Category: CategoryCredentials},
	{Key: KeyIntegrityThresholdLow, Kind: KindThreshold, Default: "80", Category: CategoryRisk},
	{Key: KeyIntegrityThresholdMedium, Kind: KindThreshold, Default: "60", Category: CategoryRisk},
	{Key: KeyRiskThresholdMedium, Kind: KindThreshold, Default: "20", Category: CategoryRisk},
	{Key: KeyRiskThresholdHigh, Kind: KindThreshold, Default: "50", Category: CategoryRisk},
	{Key: KeySimilarityThresholdLow, Kind: KindThreshold, Default: "15", Category: CategoryRisk},
	{Key: KeySimilarityThresholdMed, Kind: KindThreshold, Default: "35", Category: CategoryRisk},
	{Key: KeyCitationThresholdLow, Kind: KindThreshold, Default: "80", Category: CategoryRisk},
	{Key: KeyCitationThresholdMedium, Kind: KindThreshold, Default: "60", Category: CategoryRisk},
	{Key: KeyEnableLLMAnalysis, Kind: KindBool, Default: "true", Category: CategoryFeatures},
	{Key: KeyEnableStyleAnalysis, Kind: KindBool, Default: "true", Category: CategoryFeatures},
	{Key: KeyEnableCitationCheck, Kind: KindBool, Default: "true", Category: CategoryFeatures},
}

// LookupSetting returns the definition for key.
func LookupSetting(key string) (SettingDefinition, bool) {
	for _, d := range SettingDefinitions {
		if d.Key == key {
			return d, true
		}
	}
	return SettingDefinition{}, false
}

// APIKeySetting returns the credential key for a provider name, or "" if it has none.
func APIKeySetting(provider string) string {
	switch provider {
	case "openai":
		return KeyOpenAIAPIKey
	case "anthropic":
		return KeyAnthropicAPIKey
	case "gemini":
		return KeyGeminiAPIKey
	case "deepseek":
		return KeyDeepSeekAPIKey
	default:
		return ""
	}
}

// SystemConfig is one persisted setting row. Secret values are stored encrypted.
type SystemConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	Category  string    `json:"category"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingView is a setting as shown to the settings UI. Secrets are masked.
type SettingView struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	IsSecret  bool       `json:"is_secret"`
	Category  string     `json:"category"`
	IsDefault bool       `json:"is_default"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SettingUpdate is one key in a batch update.
type SettingUpdate struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// SettingFailure reports why one key in a batch was not applied.
type SettingFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BatchResult reports per-key outcomes of a batch update.
type BatchResult struct {
	Updated []string         `json:"updated"`
	Skipped []string         `json:"skipped"`
	Failed  []SettingFailure `json:"failed"`
}

// ThresholdPair holds the (low, medium) bounds for one metric.
type ThresholdPair struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
}

// Thresholds holds the bounds for all four risk metrics.
type Thresholds struct {
	StyleMatch         ThresholdPair `json:"style_match"`
	AIRisk             ThresholdPair `json:"ai_risk"`
	InternalSimilarity ThresholdPair `json:"internal_similarity"`
	Citation           ThresholdPair `json:"citation"`
}

// DefaultThresholds returns the built-in threshold pairs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StyleMatch:         ThresholdPair{Low: 80, Medium: 60},
		AIRisk:             ThresholdPair{Low: 20, Medium: 50},
		InternalSimilarity: ThresholdPair{Low: 15, Medium: 35},
		Citation:           ThresholdPair{Low: 80, Medium: 60},
	}
}

// Settings is the typed, decrypted view of the store used by the analysis pipeline.
// Generation changes every time the snapshot is rebuilt.
type Settings struct {
	Provider            string
	APIKeys             map[string]string
	Thresholds          Thresholds
	EnableLLMAnalysis   bool
	EnableStyleAnalysis bool
	EnableCitationCheck bool
	Generation          uint64
}

// APIKey returns the decrypted credential for provider.
func (s *Settings) APIKey(provider string) string {
	if s == nil || s.APIKeys == nil {
		return ""
	}
	return s.APIKeys[provider]
}

// ProviderTestRequest asks for a connection check against a provider.
type ProviderTestRequest struct {
	Provider string `json:"provider" validate:"required"`
	APIKey   string `json:"api_key"`
}

// ProviderTestResult is the outcome of a connection check.
type ProviderTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
