// Package textutil sanitizes video titles and uploader names into path
// segments for job working directories.
package textutil
