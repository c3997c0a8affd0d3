package config

import "fmt"

// Endpoints holds the host suffixes and OAuth scope for one cloud
// environment, grounded on the original implementation's bundled
// clouds/endpoints table (utils/clouds.py).
type Endpoints struct {
	StorageSuffix string
	CatalogScope  string
}

var cloudTable = map[string]Endpoints{
	"AzureCloud": {
		StorageSuffix: "core.windows.net",
		CatalogScope:  "https://geocatalog.spatio.azure.com/.default",
	},
	"AzureUSGovernment": {
		StorageSuffix: "core.usgovcloudapi.net",
		CatalogScope:  "https://geocatalog.spatio.azure.us/.default",
	},
	"AzureChinaCloud": {
		StorageSuffix: "core.chinacloudapi.cn",
		CatalogScope:  "https://geocatalog.spatio.azure.cn/.default",
	},
}

// ResolveEndpoints looks up the storage suffix and catalog OAuth scope for
// the configured AZURE_CLOUD value.
func (c *Config) ResolveEndpoints() (Endpoints, error) {
	e, ok := cloudTable[c.AzureCloud]
	if !ok {
		return Endpoints{}, fmt.Errorf("config: unknown AZURE_CLOUD %q", c.AzureCloud)
	}
	return e, nil
}
