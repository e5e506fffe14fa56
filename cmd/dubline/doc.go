// Command dubline turns a local video or remote video locators into dubbed
// videos in a target language.
//
// The root command loads configuration once per invocation and exposes:
//   - run: process sources through download, separation, transcription,
//     translation, synthesis and assembly
//   - history: inspect recorded runs and jobs
//   - deps: report external tools and environment readiness
//   - config: create, show and validate configuration files
package main
