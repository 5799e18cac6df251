package setup

import "os/exec"

// Dependencies reports which external tools are on PATH.
type Dependencies struct {
	Bash   bool `json:"bash"`
	Docker bool `json:"docker"`
	Curl   bool `json:"curl"`
	Wget   bool `json:"wget"`
}

var lookPath = exec.LookPath

// CheckDependencies probes PATH for the tools the setup workflow may use.
func CheckDependencies() Dependencies {
	has := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}
	return Dependencies{
		Bash:   has("bash"),
		Docker: has("docker"),
		Curl:   has("curl"),
		Wget:   has("wget"),
	}
}

// Missing lists required tools that were not found. Downloads are done in
// process, so only docker is required.
func (d Dependencies) Missing() []string {
	var missing []string
	if !d.Docker {
		missing = append(missing, "docker")
	}
	return missing
}
