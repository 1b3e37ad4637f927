// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for templatesvc.
//
// Configuration is loaded with precedence ENV > File > Defaults. The file is
// YAML (.yaml, .yml) or JSON (.json) and is decoded strictly: unknown keys
// are rejected. The template list lives under the "config" key so existing
// JSON definitions of the form {"config": [...]} load unchanged.
package config
