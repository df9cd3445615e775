package config

import (
	"errors"
	"fmt"

	"github.com/otherjamesbrown/chatpulse/credentials"
)

// ErrSealedSecrets is returned when sealed secrets in the config file cannot
// be opened, for example because the key is missing or different.
var ErrSealedSecrets = errors.New("cannot open sealed config secrets")

// secretKeys lists the settable keys whose values are sealed on disk.
var secretKeys = map[string]bool{
	"events.redis.password": true,
	"events.nats.token":     true,
}

// IsSecretKey reports whether key holds a secret that must not be echoed.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// secretFields returns the secrets held in ev.
func secretFields(ev *EventsConfig) map[string]*string {
	return map[string]*string{
		"events.redis.password": &ev.Redis.Password,
		"events.nats.token":     &ev.NATS.Token,
	}
}

// sealSecrets replaces plaintext secrets in ev with sealed values. The key is
// only fetched when there is something to seal.
func sealSecrets(ev *EventsConfig) error {
	var box *credentials.Box
	for key, field := range secretFields(ev) {
		if *field == "" || credentials.IsSealed(*field) {
			continue
		}
		if box == nil {
			var err error
			if box, err = defaultBox(); err != nil {
				return fmt.Errorf("sealing %s: %w", key, err)
			}
		}
		sealed, err := box.Seal(*field)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", key, err)
		}
		*field = sealed
	}
	return nil
}

// openSecrets decrypts sealed secrets in ev. Plaintext values written by hand
// are kept as they are and get sealed on the next save.
func openSecrets(ev *EventsConfig) error {
	var box *credentials.Box
	for key, field := range secretFields(ev) {
		if !credentials.IsSealed(*field) {
			continue
		}
		if box == nil {
			var err error
			if box, err = defaultBox(); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrSealedSecrets, key, err)
			}
		}
		plain, err := box.Open(*field)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSealedSecrets, key, err)
		}
		*field = plain
	}
	return nil
}

func defaultBox() (*credentials.Box, error) {
	provider, err := credentials.DefaultKeyProvider()
	if err != nil {
		return nil, err
	}
	return credentials.NewBoxFromProvider(provider)
}
