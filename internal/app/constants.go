package app

import "pidr/internal/domain"

// MinPlayersToStartGame defines the minimum number of occupied seats required to start a game.
const MinPlayersToStartGame = domain.MinPlayers

// MaxSeats is the table size.
const MaxSeats = domain.MaxPlayers
