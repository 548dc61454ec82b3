// Package config loads the web server configuration. Values come from a .env file (loaded with godotenv, if present)
// and the process environment, which takes precedence over the file.
package config
