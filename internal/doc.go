// Package internal holds token material primitives shared by the engine
// and the token store. Nothing here touches a network or a clock.
package internal
