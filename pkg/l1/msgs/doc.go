// Package msgs provides the typed messages the bridge publishes.
package msgs

// Every message is wrapped in a Typed envelope carrying a type ID so a
// monitor can decode any topic without knowing what is published there.
//
// Producer: bridge
// Consumer: monitors, dashboards
