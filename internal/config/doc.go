// Package config defines the format-agnostic job model: the Config, its
// Jobs, and the closed unions used for steps, iteration policies, log
// outputs and execution types. It also owns the generic decoder that turns
// the output of any codec into the model, the dotenv reader and the static
// validation that runs before anything executes.
//
// Concrete file loading lives in the loader package, which implements the
// Loader interface declared here.
package config
