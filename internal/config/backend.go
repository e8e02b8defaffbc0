package config

// ConfigBackend is the platform-native settings store behind
// `plainsight config`. On darwin values live in UserDefaults under the
// com.plainsight.app domain; everywhere else a JSON file in the XDG
// config directory plays the same role.
//
// Getters report ok=false for keys that were never written, so loading
// leaves the built-in defaults untouched.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
