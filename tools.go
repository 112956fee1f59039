//go:build tools

package main

// Dependencias de tooling (no se importan desde el código del servicio).
import (
	_ "github.com/swaggo/swag"
)
