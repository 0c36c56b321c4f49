// Package backup implements the pipeline behind `flashsync run`: find the
// newest folder matching the source pattern, pick the USB volume by label,
// mount it when nothing mounted it yet, mirror the folder onto it, verify on
// request, and undo whatever the run set up on the way out.
package backup
