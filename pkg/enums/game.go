package enums

import "fmt"

// Game identifies the trading card game a product belongs to.
type Game string

const (
	GameMTG       Game = "mtg"
	GamePokemon   Game = "pokemon"
	GameLorcana   Game = "lorcana"
	GameAccessory Game = "accessory"
)

var validGames = []Game{
	GameMTG,
	GamePokemon,
	GameLorcana,
	GameAccessory,
}

// String implements fmt.Stringer.
func (g Game) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Game.
func (g Game) IsValid() bool {
	for _, candidate := range validGames {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGame converts raw input into a Game.
func ParseGame(value string) (Game, error) {
	for _, candidate := range validGames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid game %q", value)
}
