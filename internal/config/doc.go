// Package config handles configuration loading for the wellness client.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, layered over built-in defaults, then overridden by WELLNESS_*
// environment variables. Running without any file is supported.
//
// # Configuration File
//
// Default location (see DefaultPath):
//
//  1. Path from WELLNESS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/wellness/client.yaml
//  3. ~/.config/wellness/client.yaml
//
// A path ending in .toml is parsed as TOML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	service:
//	  url: "${WELLNESS_URL}"
//
// # Environment Overrides
//
//	WELLNESS_SERVICE_URL, WELLNESS_SERVICE_TIMEOUT, WELLNESS_GREETING,
//	WELLNESS_HEURISTIC_CONFIRMATION, WELLNESS_HTTP_ADDR, WELLNESS_DB_PATH,
//	WELLNESS_LOG_LEVEL, WELLNESS_LOG_FORMAT, WELLNESS_LOG_FILE, TS_AUTHKEY
//
// # Configuration Sections
//
//	service:
//	  url: "http://localhost:8000"
//	  timeout: "60s"
//
//	chat:
//	  greeting: "Hi there! I'm WellnessGPT. How can I help you today?"
//	  heuristic_confirmation: true
//	  placeholder_image: "/static/images/medicine/medicine-placeholder.jpg"
//	  agent_labels:
//	    symptom: "Symptom Checker"
//	  pacing:
//	    greeting: "500ms"
//	    reply: "300ms"
//	    suggestions: "500ms"
//
//	web:
//	  http_addr: "127.0.0.1:8080"
//	  session_ttl: "30m"
//	  tailscale:
//	    enabled: false
//	    hostname: "wellness"
//	    auth_key: "${TS_AUTHKEY}"
//	    https: true
//
//	database:
//	  path: ":memory:"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	  file: ""        # empty means stderr
package config
