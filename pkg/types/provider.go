package types

// Provider identifies a supported cloud provider
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// AllProviders lists every provider the ingestion pipeline knows about
func AllProviders() []Provider {
	return []Provider{ProviderAWS, ProviderAzure, ProviderGCP}
}

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	}
	return false
}
