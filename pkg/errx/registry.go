package errx

// Error codes: the first two digits are the domain, the last three are
// reserved for subcodes.
const (
	CodeCLI       = "70000"
	CodeCluster   = "71000"
	CodeInstall   = "72000"
	CodeDeploy    = "73000"
	CodeTeardown  = "74000"
	CodeConfig    = "75000"
	CodeState     = "76000"
	CodePreflight = "77000"
)

const (
	DescCLI       = "CLI/argument validation error"
	DescCluster   = "Cluster lifecycle error"
	DescInstall   = "Tool installation error"
	DescDeploy    = "Deploy error"
	DescTeardown  = "Teardown error"
	DescConfig    = "Configuration error"
	DescState     = "Cluster state error"
	DescPreflight = "Host preflight error"
)
