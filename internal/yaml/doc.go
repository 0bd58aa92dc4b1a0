// Package yaml provides a YAML implementation of config.Loader for projects
// that prefer a plain data file over HCL. Expressions are not supported;
// string values may reference ${project.*}, ${timestamp}, ${epoch_ms} and
// environment variables as ${NAME} or ${env.NAME}. A $ outside ${...} is
// kept as written.
package yaml
