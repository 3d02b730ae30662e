package templates

import _ "embed"

//go:embed config.json5
var Config []byte

//go:embed curriculum.yaml
var Curriculum []byte

//go:embed telemetry.json5
var Telemetry []byte
