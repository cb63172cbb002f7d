// Package migrations provides embedded SQL migrations for Goose. The
// orchestrator and learning stores are physically distinct databases
// (internal/config.LearningConfig), so each gets its own embedded
// migration set rather than sharing one directory.
package migrations

import "embed"

// OrchestratorFS embeds the operational store's migrations (workflow,
// tit, events schemas).
//
//go:embed orchestrator/*.sql
var OrchestratorFS embed.FS

// LearningFS embeds the hard-isolated learning store's migrations.
//
//go:embed learning/*.sql
var LearningFS embed.FS
