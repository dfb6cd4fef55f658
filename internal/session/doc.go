// Package session tracks active MCP sessions in memory, enforcing a
// stale-activity timeout through lazy expiry and a periodic sweep.
package session
