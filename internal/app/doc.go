// Package app wires application dependencies for the CLI.
//
// LoadConfig reads settings from the environment, an optional .env file and
// an optional config.yaml in the home directory. NewWire builds the shared
// state document, stores, relay client, services and sync engine from a
// Config, exposing them via the Wire struct for commands to use.
package app
