package model

// Package model defines domain data structures shared across the bot: output
// profiles, item and playlist metadata, pending selections, playlist run
// counters, and the error taxonomy surfaced to users.
