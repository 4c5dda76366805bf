// Package cli provides the fundlink command line interface.
//
// Commands are registered on a package-level root command. The services
// they drive are built lazily by a Bootstrap function supplied by main,
// or injected directly with SetServices.
package cli
