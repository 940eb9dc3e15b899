// Package reconcile decides how the registry has to change so that it holds
// the locally built installer, and then carries that change out.
package reconcile
