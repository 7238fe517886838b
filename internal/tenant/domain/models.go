package domain

// TenantConnection is the registry projection of one tenant database.
// Driver and Port come from configuration defaults; the provisioning table
// only stores host, name and credentials.
type TenantConnection struct {
	ID         int64  `json:"id"`
	Subdomain  string `json:"subdomain"`
	DBHost     string `json:"db_host"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"-"`
	DBPassword string `json:"-"`
	Driver     string `json:"driver"`
	Port       string `json:"port,omitempty"`
	Active     bool   `json:"active"`
}
