// Package topology applies the relay's node and method configuration, either from the main
// configuration or from a separate topology file that is watched for changes.
package topology
