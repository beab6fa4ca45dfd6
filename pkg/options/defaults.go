package options

// DefaultServiceName is the component name a default logger is tagged with
// when neither WithLogger nor WithServiceName is supplied.
const DefaultServiceName = "iidformat"

var defaultOptions = Options{
	ServiceName: DefaultServiceName,
}

// NewDefaultOptions returns the baseline Options every Open/Save call
// starts from before functional options are applied.
func NewDefaultOptions() Options {
	return defaultOptions
}
