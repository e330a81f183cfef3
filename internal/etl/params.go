package etl

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

const (
	ParamSourceBucket = "SOURCE_BUCKET"
	ParamSourceKey    = "SOURCE_KEY"
	ParamOutputBucket = "OUTPUT_BUCKET"
)

// RequiredParams are the arguments every job run must be started with.
var RequiredParams = []string{ParamSourceBucket, ParamSourceKey, ParamOutputBucket}

type JobParameters struct {
	SourceBucket string
	SourceKey    string
	OutputBucket string
}

// ResolveOptions picks the named options out of an orchestrator argument list
// ("--NAME value" or "--NAME=value"). Arguments that were not asked for are
// ignored, since the orchestrator adds its own. Every missing name is reported
// in a single ConfigurationError.
func ResolveOptions(args []string, names []string) (map[string]string, error) {
	fs := pflag.NewFlagSet("job", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.ParseErrorsWhitelist.UnknownFlags = true

	values := make(map[string]*string, len(names))
	for _, name := range names {
		values[name] = fs.String(name, "", "")
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	resolved := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		if !fs.Changed(name) {
			missing = append(missing, name)
			continue
		}
		resolved[name] = *values[name]
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}
	return resolved, nil
}

// ResolveJobParameters resolves the three required job arguments.
func ResolveJobParameters(args []string) (JobParameters, error) {
	opts, err := ResolveOptions(args, RequiredParams)
	if err != nil {
		return JobParameters{}, err
	}
	return JobParameters{
		SourceBucket: opts[ParamSourceBucket],
		SourceKey:    opts[ParamSourceKey],
		OutputBucket: opts[ParamOutputBucket],
	}, nil
}

// Args renders the parameters in the form ResolveJobParameters accepts, keyed
// the way a Glue StartJobRun call expects.
func (p JobParameters) Args() map[string]string {
	return map[string]string{
		"--" + ParamSourceBucket: p.SourceBucket,
		"--" + ParamSourceKey:    p.SourceKey,
		"--" + ParamOutputBucket: p.OutputBucket,
	}
}
