// Package rbcode emits the C scaffolding every injected bug's state lives
// in: one rb_state<id>_t struct per bug (one field per allocated variable,
// typed and initialized per variable.Type), its global instance and extern
// declaration, and the `#define RACEBENCH_BUG_<id>` macro the injected
// #ifdef fences test. See spec.md §6.
package rbcode
