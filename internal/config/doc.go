// Package config loads dubline's TOML configuration.
//
// Load layers a file (explicit, ~/.config/dubline/config.toml, or
// ./dubline.toml) over Default, expands ~ in path settings, fills secrets
// from OPENROUTER_API_KEY and HF_TOKEN when the file leaves them empty, and
// validates the result. Method names are canonicalized during normalization
// so callers can switch on the exported constants.
package config
