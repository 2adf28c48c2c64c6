// Package domain defines the core domain models for Linescope.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling: the sensor reading record, the fixed site
// timezone, and the coded error taxonomy shared by every layer.
package domain
