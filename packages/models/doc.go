// Package models defines the persisted records shared by the hitsend engine:
// requests, workspaces, settings, environments, cookie jars and responses.
//
// Every record serializes as camelCase JSON so the same shape is used by the
// SQLite store, request files and the CLI output.
package models
