package config

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewDigestForTest creates a Digest config for testing purposes
func NewDigestForTest(schedule string, concurrency int) *Digest {
	return &Digest{
		schedule:    schedule,
		concurrency: concurrency,
	}
}

// NewSchemaForTest creates a Schema config for testing purposes
func NewSchemaForTest(path string) *Schema {
	return &Schema{path: path}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}
