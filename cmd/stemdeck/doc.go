// Command stemdeck separates audio through a remote stem-separation service
// and plays the resulting stems in a synchronized terminal player.
package main
