// Package textutil holds filename helpers for exported stems and mixdowns.
package textutil
