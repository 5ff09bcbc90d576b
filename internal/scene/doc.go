// Package scene implements stored scenes and their activation.
//
// A scene maps device IDs to desired property values. Activation
// translates each property map into device commands and dispatches
// them sequentially through the orchestrator. There is no rollback:
// partial failure leaves earlier devices in their new state, and the
// scene's last execution time advances only after a fully successful
// run.
package scene
