// Package config layers hitsend settings: built-in defaults, then a
// .hitsend.{json,yaml} file, then HITSEND_* variables. The CLI applies
// explicitly set flags last.
package config
