package config

// ConfigBackend is a persistent key store addressed by dotted keys such as
// "server.port". Values missing from the store report ok == false.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	Delete(key string) error
}
