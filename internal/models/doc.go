// Package models defines the wire types exchanged with the Compere rating API.
package models
