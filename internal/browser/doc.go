// Package browser drives the pages being audited.
//
// Driver and Page abstract the browser so the audit pipeline does not
// depend on a particular engine. Two implementations are provided:
//   - PlaywrightDriver runs headless Chromium through playwright-go and
//     supports every operation, including screenshots.
//   - StaticDriver fetches documents over HTTP and inspects them with
//     goquery. It times subresources itself and cannot take screenshots.
package browser
