// Package config provides configuration loading, merging, and path management for agentcore.
//
// This package handles the complex configuration system that supports multiple sources
// and formats, with a hierarchical loading strategy that ensures proper precedence
// and compatibility with both TypeScript and Go implementations.
//
// # Configuration Loading
//
// The Load function merges configuration from multiple sources in priority order:
//
//  1. Global config (~/.agentcore/agentcore.json, then agentcore.jsonc)
//  2. Project config (<directory>/.agentcore/agentcore.json, then
//     agentcore.jsonc; skipped when it is the same directory as the global one)
//  3. AGENTCORE_CONFIG_CONTENT inline JSON, or the AGENTCORE_CONFIG file when
//     AGENTCORE_CONFIG_CONTENT is unset
//  4. Environment variables
//
// Configuration files are loaded in a specific order to ensure that more specific
// configurations override more general ones, while environment variables have the
// highest precedence.
//
// # Supported Formats
//
// The package supports both JSON and JSONC (JSON with Comments) formats:
//   - agentcore.json - Standard JSON configuration
//   - agentcore.jsonc - JSON with comments, processed using tidwall/jsonc
//
// # Variable Interpolation
//
// Configuration files support two types of variable interpolation:
//   - {env:VAR_NAME} - Expands to environment variable values
//   - {file:path} - Expands to the file's contents, inserted as-is (not escaped for JSON)
//
// File paths in {file:path} placeholders support:
//   - Absolute paths
//   - Relative paths (resolved relative to config file directory)
//
// A leading ~/ is not expanded to the home directory; such a path is resolved
// relative to the config file directory like any other relative path.
//
// Example configuration with interpolation:
//
//	{
//	  "provider": {
//	    "anthropic": {
//	      "options": {
//	        "apiKey": "{env:ANTHROPIC_API_KEY}"
//	      }
//	    }
//	  },
//	  "instructions": [
//	    "{file:./custom-instructions.txt}"
//	  ]
//	}
//
// # Configuration Merging
//
// When multiple configuration sources are found, they are merged using a deep merge
// strategy that:
//   - Overwrites scalar values (strings, booleans, numbers)
//   - Merges maps/objects by combining keys
//   - Appends to arrays/slices
//   - Preserves the last-loaded value for conflicts
//
// # Path Management
//
// The package provides XDG Base Directory Specification compliant path management
// through the Paths type:
//   - Data: ~/.local/share/agentcore (XDG_DATA_HOME)
//   - Config: ~/.config/agentcore (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/agentcore (XDG_CACHE_HOME)
//   - State: ~/.local/state/agentcore (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
//
// # Environment Variable Overrides
//
// Several environment variables provide direct configuration overrides:
//   - AGENTCORE_MODEL - Override the default model
//   - AGENTCORE_SMALL_MODEL - Override the small model
//   - AGENTCORE_CONFIG - Path to a specific config file
//   - AGENTCORE_CONFIG_CONTENT - Inline JSON configuration
//
// # TypeScript Compatibility
//
// The configuration system maintains compatibility with the TypeScript implementation
// by supporting the ~/.agentcore directory structure and TypeScript-style provider
// configuration with Options objects.
//
// # Usage Example
//
//	// Load configuration from the current directory
//	config, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get standard paths
//	paths := config.GetPaths()
//	err = paths.EnsurePaths() // Create directories if they don't exist
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save configuration
//	err = config.Save(config, config.GlobalConfigPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Project Structure Discovery
//
// The configuration loader reads the project config only from the .agentcore
// directory directly under the directory it is given. It does not walk up the
// directory tree, so a config in a parent directory or at a Git repository
// root is not found.
package config